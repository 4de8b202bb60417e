// Package capability declares the pluggable collaborators the comparison
// engines consume (embedding, object detection, entity recognition, OCR,
// rendering, extraction) and wraps them with a per-call timeout and a circuit
// breaker.
//
// Every capability is optional. A nil field in a Set means "not configured"
// and each engine degrades to its documented fallback.
package capability

import (
	"context"
	"errors"
	"image"

	"github.com/hazyhaar/docdiff/docmodel"
	"github.com/hazyhaar/docdiff/ocr"
)

// ErrUnavailable is returned by callers that need a capability the Set does
// not carry.
var ErrUnavailable = errors.New("capability unavailable")

// Embedder turns texts into fixed-dimension vectors, one per input, in order.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// Detector finds objects (signatures, stamps, logos) on a page raster.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]docmodel.Detection, error)
}

// EntityRecognizer returns labelled spans of text.
type EntityRecognizer interface {
	Recognize(ctx context.Context, text string) ([]docmodel.Entity, error)
}

// Renderer produces one raster per page of an input file.
type Renderer interface {
	Render(ctx context.Context, name string, data []byte) ([]image.Image, error)
}

// Extractor turns raw bytes into a Document.
type Extractor interface {
	Extract(ctx context.Context, name string, data []byte) (*docmodel.Document, error)
}

// Set holds the capabilities shared by every job. It is built once at
// process start and only read afterwards.
type Set struct {
	Embedder Embedder
	Detector Detector
	Entities EntityRecognizer
	OCR      ocr.Engine
}

// HasEmbedder reports whether an embedding backend is configured.
func (s Set) HasEmbedder() bool { return s.Embedder != nil }

// HasDetector reports whether an object detector is configured.
func (s Set) HasDetector() bool { return s.Detector != nil }

// HasEntities reports whether an entity recognizer is configured.
func (s Set) HasEntities() bool { return s.Entities != nil }

// HasOCR reports whether an OCR engine is configured.
func (s Set) HasOCR() bool { return s.OCR != nil }

// Names lists the configured capabilities, for startup logging.
func (s Set) Names() []string {
	var out []string
	if s.HasEmbedder() {
		out = append(out, "embedder:"+s.Embedder.Model())
	}
	if s.HasDetector() {
		out = append(out, "detector")
	}
	if s.HasEntities() {
		out = append(out, "entities")
	}
	if s.HasOCR() {
		out = append(out, "ocr:"+s.OCR.Name())
	}
	return out
}
