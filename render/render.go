// Package render turns input files into page rasters for the visual and
// OCR paths. Images decode to a single page. PDFs yield, per page, the
// largest embedded image, which for scanned contracts is the page scan.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageExtensions lists the raster formats Render decodes.
var ImageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".tif", ".tiff", ".bmp", ".webp"}

// Config configures the renderer.
type Config struct {
	// MaxPages caps the rasters produced per document. Default: 200.
	MaxPages int `json:"max_pages" yaml:"max_pages"`

	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.MaxPages <= 0 {
		c.MaxPages = 200
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Renderer implements capability.Renderer.
type Renderer struct {
	cfg Config
}

// New creates a Renderer.
func New(cfg Config) *Renderer {
	cfg.defaults()
	return &Renderer{cfg: cfg}
}

// IsImage reports whether name has a raster image extension.
func IsImage(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range ImageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Render returns the page rasters of the file. Formats without a raster
// form (text, docx, html) return nil and no error.
func (r *Renderer) Render(ctx context.Context, name string, data []byte) ([]image.Image, error) {
	switch {
	case IsImage(name):
		img, err := Decode(data)
		if err != nil {
			return nil, err
		}
		return []image.Image{img}, nil
	case strings.EqualFold(filepath.Ext(name), ".pdf"):
		return r.pdfPages(ctx, data)
	}
	return nil, nil
}

// Decode decodes any registered raster format.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func (r *Renderer) pdfPages(ctx context.Context, data []byte) ([]image.Image, error) {
	conf := model.NewDefaultConfiguration()
	pdf, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}

	n := min(pdf.PageCount, r.cfg.MaxPages)
	var pages []image.Image
	for pageNr := 1; pageNr <= n; pageNr++ {
		if err := ctx.Err(); err != nil {
			return pages, err
		}
		imgs, err := pdfcpu.ExtractPageImages(pdf, pageNr, false)
		if err != nil {
			r.cfg.Logger.Debug("page images unavailable", "page", pageNr, "error", err)
			continue
		}
		if img := largest(imgs); img != nil {
			pages = append(pages, img)
		}
	}
	return pages, nil
}

// largest decodes the embedded images of one page and keeps the biggest.
func largest(imgs map[int]model.Image) image.Image {
	var best image.Image
	bestArea := 0
	for _, ei := range imgs {
		img, _, err := image.Decode(ei)
		if err != nil {
			continue
		}
		b := img.Bounds()
		if area := b.Dx() * b.Dy(); area > bestArea {
			best, bestArea = img, area
		}
	}
	return best
}
