// Package fmtdiff compares the formatting of text runs present in both
// documents: font, size, weight, slant, alignment and position.
//
// Runs are indexed by their trimmed text. When the same text appears more
// than once in a document, the later run wins.
package fmtdiff

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/hazyhaar/docdiff/docmodel"
	"github.com/hazyhaar/docdiff/ocr"
)

// Config tunes the engine.
type Config struct {
	// MinTextLength drops runs whose trimmed text is shorter (punctuation
	// and stray glyphs). Default: 2.
	MinTextLength int `json:"min_text_length" yaml:"min_text_length"`

	// ScannedRunThreshold: a raster-backed document with fewer native runs
	// is treated as scanned and its runs are rebuilt from OCR. Default: 10.
	ScannedRunThreshold int `json:"scanned_run_threshold" yaml:"scanned_run_threshold"`

	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.MinTextLength <= 0 {
		c.MinTextLength = 2
	}
	if c.ScannedRunThreshold <= 0 {
		c.ScannedRunThreshold = 10
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Engine is safe for concurrent use.
type Engine struct {
	cfg Config
	ocr ocr.Engine
}

// New creates an Engine. ocrEngine may be nil, in which case scanned
// documents compare with whatever native runs they have.
func New(cfg Config, ocrEngine ocr.Engine) *Engine {
	cfg.defaults()
	return &Engine{cfg: cfg, ocr: ocrEngine}
}

// Index keys runs by trimmed text, last write wins.
func (e *Engine) Index(runs []docmodel.Run) map[string]docmodel.Run {
	idx := make(map[string]docmodel.Run, len(runs))
	for _, r := range runs {
		key := strings.TrimSpace(r.Text)
		if len([]rune(key)) < e.cfg.MinTextLength {
			continue
		}
		idx[key] = r
	}
	return idx
}

// Compare diffs two run lists. It accepts native and OCR-derived runs alike.
func (e *Engine) Compare(a, b []docmodel.Run) docmodel.FormattingReport {
	rep := docmodel.FormattingReport{
		Added:   []docmodel.Run{},
		Removed: []docmodel.Run{},
		Changed: []docmodel.FormattingChange{},
		Outcome: docmodel.NewOutcome("formatting"),
	}
	ia, ib := e.Index(a), e.Index(b)

	for _, k := range sortedKeys(ib) {
		if _, ok := ia[k]; !ok {
			rep.Added = append(rep.Added, ib[k])
		}
	}
	for _, k := range sortedKeys(ia) {
		rb, ok := ib[k]
		if !ok {
			rep.Removed = append(rep.Removed, ia[k])
			continue
		}
		if diffs := compareRuns(ia[k], rb); len(diffs) > 0 {
			rep.Changed = append(rep.Changed, docmodel.FormattingChange{Text: k, Differences: diffs})
		}
	}
	return rep
}

// Differences renders the changed runs as format_change differences.
func Differences(rep docmodel.FormattingReport) []docmodel.Difference {
	out := make([]docmodel.Difference, 0, len(rep.Changed))
	for _, c := range rep.Changed {
		fields := make([]string, 0, len(c.Differences))
		for f := range c.Differences {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		out = append(out, docmodel.Difference{
			Type:            docmodel.FormatChange,
			Location:        docmodel.KeyLocation(c.Text),
			OriginalContent: c.Text,
			ModifiedContent: c.Text,
			Importance:      docmodel.ImportanceLow,
			Metadata:        map[string]any{"fields": fields, "differences": c.Differences},
		})
	}
	return out
}

// Resolve returns the runs to compare for doc. A raster-backed document with
// fewer than ScannedRunThreshold native runs gets its runs rebuilt from OCR
// word boxes, one page at a time. OCR problems become notes on out; the
// native runs are kept if nothing could be recognized.
func (e *Engine) Resolve(ctx context.Context, doc *docmodel.Document, label string, out *docmodel.Outcome) []docmodel.Run {
	if doc == nil {
		return nil
	}
	if len(doc.Runs) >= e.cfg.ScannedRunThreshold || !doc.RasterBacked() {
		return doc.Runs
	}
	if e.ocr == nil {
		out.Degradef("%s looks scanned (%d native runs) but no OCR engine is configured", label, len(doc.Runs))
		return doc.Runs
	}

	var runs []docmodel.Run
	for i, page := range doc.Pages {
		res, err := e.ocr.Recognize(ctx, page)
		if err != nil {
			e.cfg.Logger.Warn("formatting OCR failed", "document", label, "page", i+1, "error", err)
			out.Degradef("%s page %d: OCR failed: %v", label, i+1, err)
			continue
		}
		runs = append(runs, ocr.Runs(res, i+1)...)
	}
	if len(runs) == 0 {
		out.Notef("%s: OCR produced no words, using %d native runs", label, len(doc.Runs))
		return doc.Runs
	}
	out.Notef("%s: formatting approximated from %d OCR word boxes", label, len(runs))
	return runs
}

// CompareDocuments resolves both documents' runs and compares them.
func (e *Engine) CompareDocuments(ctx context.Context, a, b *docmodel.Document) docmodel.FormattingReport {
	out := docmodel.NewOutcome("formatting")
	ra := e.Resolve(ctx, a, "document 1", &out)
	rb := e.Resolve(ctx, b, "document 2", &out)
	rep := e.Compare(ra, rb)
	rep.Outcome = out
	return rep
}

func sortedKeys(m map[string]docmodel.Run) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
