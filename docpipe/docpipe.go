// Package docpipe turns uploaded files into docmodel.Documents: plain text
// for the text engines, formatted runs for the formatting engine and page
// rasters for the visual engine.
//
// Supported formats:
//   - .docx  Microsoft Word (archive/zip, word/document.xml): text and runs
//   - .pdf   content-stream text, Tf font runs, embedded page images
//   - images .png .jpg .jpeg .gif .tif .tiff .bmp .webp: OCR text, one page
//   - .txt .md plain text
//   - .html  visible block text
//
// A parse failure does not fail extraction: the document comes back with
// whatever was recovered (possibly empty text) and a diagnostic. Only an
// unsupported or oversized input is an error.
//
// Usage:
//
//	pipe := docpipe.New(docpipe.Config{Renderer: render.New(render.Config{}), OCR: ocr})
//	doc, err := pipe.Extract(ctx, "lease.pdf", data)
package docpipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/hazyhaar/docdiff/docmodel"
	"github.com/hazyhaar/docdiff/render"
)

// ErrExtraction marks inputs docpipe refuses outright.
var ErrExtraction = errors.New("extraction failed")

// Pipeline is the document extraction engine. It implements
// capability.Extractor.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Pipeline with the given configuration.
func New(cfg Config) *Pipeline {
	cfg.defaults()
	return &Pipeline{
		cfg:    cfg,
		logger: cfg.Logger,
	}
}

// Detect returns the document format based on the file extension.
func (p *Pipeline) Detect(name string) (docmodel.Format, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".docx":
		return docmodel.FormatDocx, nil
	case ".pdf":
		return docmodel.FormatPDF, nil
	case ".md", ".markdown", ".txt", ".text":
		return docmodel.FormatText, nil
	case ".html", ".htm":
		return docmodel.FormatHTML, nil
	}
	if render.IsImage(name) {
		return docmodel.FormatImage, nil
	}
	return "", fmt.Errorf("%w: unsupported format %q", ErrExtraction, ext)
}

// Extract parses data according to the extension of name.
func (p *Pipeline) Extract(ctx context.Context, name string, data []byte) (*docmodel.Document, error) {
	if int64(len(data)) > p.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: file too large: %d bytes (max %d)", ErrExtraction, len(data), p.cfg.MaxFileSize)
	}
	format, err := p.Detect(name)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("extracting document", "name", name, "format", format, "bytes", len(data))

	doc := &docmodel.Document{Name: name, Format: format}
	var quality *ExtractionQuality

	switch format {
	case docmodel.FormatDocx:
		doc.Text, doc.Runs, err = extractDocx(data)
	case docmodel.FormatPDF:
		doc.Text, doc.Runs, quality, err = extractPDF(data)
	case docmodel.FormatText:
		doc.Text = extractText(data)
	case docmodel.FormatHTML:
		doc.Text, err = extractHTML(data)
	}
	if err != nil {
		p.logger.Warn("native extraction failed", "name", name, "format", format, "error", err)
		p.diagnose(doc, "native %s extraction failed: %v", format, err)
	}

	if p.cfg.Renderer != nil {
		pages, err := p.cfg.Renderer.Render(ctx, name, data)
		if err != nil {
			p.diagnose(doc, "page rendering failed: %v", err)
		}
		doc.Pages = pages
	}

	if p.needsOCR(doc, quality) {
		p.recognize(ctx, doc)
	}
	if strings.TrimSpace(doc.Text) == "" {
		p.diagnose(doc, "no text could be extracted")
	}
	return doc, nil
}

func (p *Pipeline) needsOCR(doc *docmodel.Document, q *ExtractionQuality) bool {
	switch doc.Format {
	case docmodel.FormatImage:
		return true
	case docmodel.FormatPDF:
		if len(strings.TrimSpace(doc.Text)) < p.cfg.MinNativeChars {
			return true
		}
		return q != nil && q.NeedsOCR()
	}
	return false
}

func (p *Pipeline) diagnose(doc *docmodel.Document, format string, args ...any) {
	doc.Diagnostics = append(doc.Diagnostics, fmt.Sprintf(format, args...))
}

// SupportedFormats returns every accepted file extension.
func SupportedFormats() []string {
	out := []string{".docx", ".pdf", ".txt", ".md", ".html", ".htm"}
	return append(out, render.ImageExtensions...)
}
