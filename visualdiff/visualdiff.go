// Package visualdiff compares page rasters: a structural similarity score per
// page pair, and object detection (signatures, stamps, logos) on every page
// of both documents.
//
// Pages are matched by position: page i of the original against page i of
// the modified document. A page count mismatch is reported as a note.
package visualdiff

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/hazyhaar/docdiff/capability"
	"github.com/hazyhaar/docdiff/docmodel"
)

// Config tunes the engine.
type Config struct {
	// ChangeThreshold: pages scoring below it also emit a visual_change
	// difference. Default: 0.98.
	ChangeThreshold float64 `json:"change_threshold" yaml:"change_threshold"`

	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.ChangeThreshold <= 0 {
		c.ChangeThreshold = 0.98
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Engine is safe for concurrent use.
type Engine struct {
	cfg      Config
	detector capability.Detector
}

// New creates an Engine. detector may be nil.
func New(cfg Config, detector capability.Detector) *Engine {
	cfg.defaults()
	return &Engine{cfg: cfg, detector: detector}
}

// Compare scores the common pages and runs detection on every page. It never
// fails: missing rasters and detector errors become notes.
func (e *Engine) Compare(ctx context.Context, a, b *docmodel.Document) docmodel.VisualReport {
	rep := docmodel.VisualReport{
		DetectionsA: []docmodel.PageDetections{},
		DetectionsB: []docmodel.PageDetections{},
		PageScores:  []docmodel.PageScore{},
		Outcome:     docmodel.NewOutcome("visual"),
	}
	pa, pb := pages(a), pages(b)

	switch {
	case len(pa) == 0 && len(pb) == 0:
		rep.Outcome.Degradef("no page images for either document, visual comparison skipped")
	case len(pa) == 0:
		rep.Outcome.Degradef("no page images for document 1, page scores skipped")
	case len(pb) == 0:
		rep.Outcome.Degradef("no page images for document 2, page scores skipped")
	default:
		e.scorePages(pa, pb, &rep)
	}

	rep.DetectionsA = e.detect(ctx, pa, 1, &rep.Outcome)
	rep.DetectionsB = e.detect(ctx, pb, 2, &rep.Outcome)
	return rep
}

// Differences renders low-scoring pages as visual_change differences.
func (e *Engine) Differences(rep docmodel.VisualReport) []docmodel.Difference {
	var out []docmodel.Difference
	for _, ps := range rep.PageScores {
		if ps.Score >= e.cfg.ChangeThreshold {
			continue
		}
		d := docmodel.Difference{
			Type:       docmodel.VisualChange,
			Location:   docmodel.PageLocation(ps.Page, nil),
			Importance: visualImportance(ps.Score),
			Confidence: docmodel.Float(docmodel.Round4(1 - clamp(ps.Score))),
		}
		d.SetMeta("ssim", ps.Score)
		out = append(out, d)
	}
	return out
}

func (e *Engine) scorePages(pa, pb []image.Image, rep *docmodel.VisualReport) {
	n := min(len(pa), len(pb))
	if len(pa) != len(pb) {
		rep.Outcome.Notef("document 1 has %d page(s), document 2 has %d, comparing the first %d common page(s)",
			len(pa), len(pb), n)
	}

	var sum float64
	for i := 0; i < n; i++ {
		if pa[i] == nil || pb[i] == nil {
			rep.Outcome.Degradef("page %d: missing raster, skipped", i+1)
			continue
		}
		score := docmodel.Round4(SSIM(pa[i], pb[i]))
		rep.PageScores = append(rep.PageScores, docmodel.PageScore{Page: i + 1, Score: score})
		sum += score
	}
	if len(rep.PageScores) > 0 {
		avg := docmodel.Round4(sum / float64(len(rep.PageScores)))
		rep.AverageScore = &avg
	}
}

func (e *Engine) detect(ctx context.Context, pages []image.Image, docNum int, out *docmodel.Outcome) []docmodel.PageDetections {
	res := []docmodel.PageDetections{}
	if e.detector == nil || len(pages) == 0 {
		return res
	}
	for i, p := range pages {
		if p == nil {
			continue
		}
		dets, err := e.detector.Detect(ctx, p)
		if err != nil {
			e.cfg.Logger.Warn("object detection failed", "document", docNum, "page", i+1, "error", err)
			out.Degradef("document %d page %d: detection failed: %v", docNum, i+1, err)
			continue
		}
		if dets == nil {
			dets = []docmodel.Detection{}
		}
		res = append(res, docmodel.PageDetections{Page: i + 1, Detections: dets})
		if len(dets) > 0 {
			out.Notef("detected %d object(s) on page %d of document %d", len(dets), i+1, docNum)
		}
	}
	return res
}

func pages(d *docmodel.Document) []image.Image {
	if d == nil {
		return nil
	}
	return d.Pages
}

func visualImportance(score float64) docmodel.Importance {
	switch {
	case score < 0.6:
		return docmodel.ImportanceHigh
	case score < 0.85:
		return docmodel.ImportanceMedium
	}
	return docmodel.ImportanceLow
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// String is used in logs.
func (e *Engine) String() string {
	return fmt.Sprintf("visualdiff(threshold=%.2f, detector=%v)", e.cfg.ChangeThreshold, e.detector != nil)
}
