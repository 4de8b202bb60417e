package render

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 12, 7))
	img.Set(3, 3, color.RGBA{R: 255, A: 255})
	return img
}

func TestRender_Images(t *testing.T) {
	encoders := map[string]func(*bytes.Buffer, image.Image) error{
		"scan.png":  func(b *bytes.Buffer, m image.Image) error { return png.Encode(b, m) },
		"scan.tiff": func(b *bytes.Buffer, m image.Image) error { return tiff.Encode(b, m, nil) },
		"scan.BMP":  func(b *bytes.Buffer, m image.Image) error { return bmp.Encode(b, m) },
	}
	r := New(Config{})
	for name, enc := range encoders {
		var buf bytes.Buffer
		if err := enc(&buf, testImage()); err != nil {
			t.Fatal(err)
		}
		pages, err := r.Render(context.Background(), name, buf.Bytes())
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(pages) != 1 || pages[0].Bounds().Dx() != 12 || pages[0].Bounds().Dy() != 7 {
			t.Fatalf("%s: pages %v", name, pages)
		}
	}
}

func TestRender_NoRasterForm(t *testing.T) {
	pages, err := New(Config{}).Render(context.Background(), "contract.docx", []byte("PK"))
	if err != nil || pages != nil {
		t.Fatalf("got %v, %v", pages, err)
	}
}

func TestRender_CorruptImage(t *testing.T) {
	if _, err := New(Config{}).Render(context.Background(), "x.png", []byte("not a png")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestRender_CorruptPDF(t *testing.T) {
	if _, err := New(Config{}).Render(context.Background(), "x.pdf", []byte("%PDF-garbage")); err == nil {
		t.Fatal("expected pdf error")
	}
}

func TestIsImage(t *testing.T) {
	for name, want := range map[string]bool{"a.JPG": true, "b.jpeg": true, "c.pdf": false, "d": false} {
		if got := IsImage(name); got != want {
			t.Errorf("IsImage(%q) = %v", name, got)
		}
	}
}
