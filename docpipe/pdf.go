package docpipe

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/hazyhaar/docdiff/docmodel"
)

// extractPDF reads the text-showing operators of every page content stream.
// Pages are separated by a blank line. Runs carry the Tf font resource name
// and size in effect when the text was shown.
func extractPDF(data []byte) (string, []docmodel.Run, *ExtractionQuality, error) {
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return "", nil, nil, fmt.Errorf("pdfcpu read: %w", err)
	}

	var (
		pages []string
		runs  []docmodel.Run
		chars int
	)
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		content := pageContent(ctx, pageNr)
		if len(content) == 0 {
			continue
		}
		text, pageRuns := parseContentStream(content, pageNr)
		if text == "" {
			continue
		}
		chars += len([]rune(text))
		pages = append(pages, text)
		runs = append(runs, pageRuns...)
	}

	fullText := strings.Join(pages, "\n\n")
	quality := &ExtractionQuality{
		PageCount:       ctx.PageCount,
		PrintableRatio:  computePrintableRatio(fullText),
		WordlikeRatio:   computeWordlikeRatio(fullText),
		HasImageStreams: detectImageStreams(ctx),
	}
	if ctx.PageCount > 0 {
		quality.CharsPerPage = float64(chars) / float64(ctx.PageCount)
	}
	return fullText, runs, quality, nil
}

func pageContent(ctx *model.Context, pageNr int) []byte {
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil || r == nil {
		return nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil
	}
	return data
}

// detectImageStreams checks if the PDF contains image XObjects.
func detectImageStreams(ctx *model.Context) bool {
	if ctx.Optimize != nil {
		for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
			if len(pdfcpu.ImageObjNrs(ctx, pageNr)) > 0 {
				return true
			}
		}
	}
	for _, entry := range ctx.Table {
		if entry == nil || entry.Free || entry.Compressed {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok {
			continue
		}
		if subtype, found := sd.Find("Subtype"); found {
			if name, isName := subtype.(types.Name); isName && name == "Image" {
				return true
			}
		}
	}
	return false
}
