// Package tesseract implements ocr.Engine with the Tesseract library through
// gosseract. It needs libtesseract and the trained data of the configured
// languages at runtime.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/hazyhaar/docdiff/ocr"
)

// Engine is a Tesseract-backed ocr.Engine. Each call uses its own client,
// so an Engine is safe for concurrent use.
type Engine struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

// New creates an Engine. languages are Tesseract codes ("eng", "fra");
// empty means the library default.
func New(languages ...string) *Engine {
	return &Engine{languages: languages, clientFactory: gosseract.NewClient}
}

func (e *Engine) Name() string { return "tesseract" }

// Recognize runs OCR over img and returns word boxes.
func (e *Engine) Recognize(ctx context.Context, img image.Image) (ocr.Result, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Result{}, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return ocr.Result{}, fmt.Errorf("encode page: %w", err)
	}

	c := e.clientFactory()
	defer c.Close()

	if len(e.languages) > 0 {
		if err := c.SetLanguage(e.languages...); err != nil {
			return ocr.Result{}, fmt.Errorf("set languages: %w", err)
		}
	}
	if err := c.SetImageFromBytes(buf.Bytes()); err != nil {
		return ocr.Result{}, fmt.Errorf("set image: %w", err)
	}

	text, err := c.Text()
	if err != nil {
		return ocr.Result{}, fmt.Errorf("recognize text: %w", err)
	}

	words, conf := extractWords(c)
	return ocr.Result{
		Text:       strings.TrimSpace(text),
		Words:      words,
		Confidence: conf,
	}, nil
}

func extractWords(c *gosseract.Client) ([]ocr.Word, float64) {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return nil, 0
	}
	words := make([]ocr.Word, 0, len(boxes))
	var sum float64
	for _, b := range boxes {
		conf := b.Confidence / 100.0
		sum += conf
		words = append(words, ocr.Word{
			Text: b.Word,
			Bounds: ocr.Region{
				X:      float64(b.Box.Min.X),
				Y:      float64(b.Box.Min.Y),
				Width:  float64(b.Box.Dx()),
				Height: float64(b.Box.Dy()),
			},
			Confidence: conf,
		})
	}
	return words, sum / float64(len(words))
}
