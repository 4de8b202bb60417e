// Package docmodel holds the data shared by every stage of a comparison:
// the normalized document, the differences the engines emit, the job record
// and the final result with its per-modality sub-reports.
//
// Values in this package carry no behaviour beyond small helpers. A Document
// is produced once by extraction and then only read.
package docmodel

import (
	"image"
	"math"
)

// Format identifies the source type a Document was extracted from.
type Format string

const (
	FormatPDF   Format = "pdf"
	FormatDocx  Format = "docx"
	FormatImage Format = "image"
	FormatText  Format = "text"
	FormatHTML  Format = "html"
)

// BBox is an axis-aligned box in page pixel (or point) coordinates, origin
// at the upper-left corner.
type BBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Run is a formatted text span. Optional attributes are nil or empty when the
// extractor could not determine them; the formatting engine only compares an
// attribute that both sides carry.
type Run struct {
	Text      string   `json:"text"`
	FontName  string   `json:"font_name,omitempty"`
	FontSize  *float64 `json:"font_size,omitempty"`
	Bold      *bool    `json:"bold,omitempty"`
	Italic    *bool    `json:"italic,omitempty"`
	Alignment string   `json:"alignment,omitempty"`
	Page      int      `json:"page,omitempty"` // 1-based, 0 when unknown
	BBox      *BBox    `json:"bbox,omitempty"`
	Note      string   `json:"note,omitempty"`
}

// Document is the normalized form of one input file.
type Document struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Format Format `json:"format"`
	Text   string `json:"text"`
	Runs   []Run  `json:"runs,omitempty"`

	// Pages holds one raster per page, in order. Nil when the renderer
	// produced nothing for this input.
	Pages []image.Image `json:"-"`

	// Diagnostics records extraction problems that did not prevent a
	// Document from being produced (OCR fallback used, empty text, ...).
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// RasterBacked reports whether page images are available for the document.
func (d *Document) RasterBacked() bool {
	return d != nil && len(d.Pages) > 0
}

// Entity is a labelled text span found by an entity recognizer.
type Entity struct {
	Label string `json:"label"`
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Detection is one object found on a page raster.
type Detection struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	BBox       BBox    `json:"bbox"`
}

// Float returns a pointer to v. Used for optional Run attributes.
func Float(v float64) *float64 { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

// Round4 rounds to four decimal places, the precision of every reported
// score.
func Round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
