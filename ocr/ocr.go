// Package ocr defines the optical character recognition contract used for
// scanned pages: an Engine turns a page raster into words with pixel boxes.
// The tesseract subpackage provides the default engine.
package ocr

import (
	"context"
	"image"
	"strings"

	"github.com/hazyhaar/docdiff/docmodel"
)

// Region is a rectangle in pixel coordinates, origin at the upper-left
// corner of the image.
type Region struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// IsEmpty reports whether the region has non-positive dimensions.
func (r Region) IsEmpty() bool { return r.Width <= 0 || r.Height <= 0 }

// BBox converts the region to a document box.
func (r Region) BBox() docmodel.BBox {
	return docmodel.BBox{Left: r.X, Top: r.Y, Width: r.Width, Height: r.Height}
}

// Word is a single recognized token. Confidence is in [0,1].
type Word struct {
	Text       string
	Bounds     Region
	Confidence float64
}

// Result is the output of one recognition.
type Result struct {
	Text       string
	Words      []Word
	Confidence float64
}

// Engine recognizes text on a page raster.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img image.Image) (Result, error)
}

// Runs converts recognized words into approximate formatting runs: the word
// box becomes the run box and the box height stands in for the font size.
// page is 1-based.
func Runs(res Result, page int) []docmodel.Run {
	runs := make([]docmodel.Run, 0, len(res.Words))
	for _, w := range res.Words {
		text := strings.TrimSpace(w.Text)
		if text == "" || w.Bounds.IsEmpty() {
			continue
		}
		box := w.Bounds.BBox()
		runs = append(runs, docmodel.Run{
			Text:     text,
			FontSize: docmodel.Float(w.Bounds.Height),
			Page:     page,
			BBox:     &box,
			Note:     "approximate formatting from OCR bounding box",
		})
	}
	return runs
}
