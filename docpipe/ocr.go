package docpipe

import (
	"context"
	"strings"

	"github.com/hazyhaar/docdiff/docmodel"
)

// recognize replaces doc.Text with OCR output over its page rasters. Runs
// are left alone: the formatting engine rebuilds them from word boxes.
func (p *Pipeline) recognize(ctx context.Context, doc *docmodel.Document) {
	if p.cfg.OCR == nil {
		p.diagnose(doc, "document needs OCR but no OCR engine is configured")
		return
	}
	if !doc.RasterBacked() {
		p.diagnose(doc, "document needs OCR but no page images are available")
		return
	}

	var pages []string
	for i, img := range doc.Pages {
		res, err := p.cfg.OCR.Recognize(ctx, img)
		if err != nil {
			p.logger.Warn("ocr failed", "name", doc.Name, "page", i+1, "error", err)
			p.diagnose(doc, "page %d: OCR failed: %v", i+1, err)
			continue
		}
		if t := strings.TrimSpace(res.Text); t != "" {
			pages = append(pages, t)
		}
	}
	if len(pages) == 0 {
		return
	}
	doc.Text = strings.Join(pages, "\n\n")
	p.diagnose(doc, "text recognized with %s OCR over %d page(s)", p.cfg.OCR.Name(), len(doc.Pages))
}
