package docpipe

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/hazyhaar/docdiff/docmodel"
	"github.com/hazyhaar/docdiff/ocr"
	"github.com/hazyhaar/docdiff/render"
)

func TestDetect(t *testing.T) {
	pipe := New(Config{})

	tests := []struct {
		name   string
		format docmodel.Format
	}{
		{"lease.docx", docmodel.FormatDocx},
		{"lease.pdf", docmodel.FormatPDF},
		{"lease.md", docmodel.FormatText},
		{"lease.TXT", docmodel.FormatText},
		{"lease.html", docmodel.FormatHTML},
		{"lease.htm", docmodel.FormatHTML},
		{"scan.png", docmodel.FormatImage},
		{"scan.tiff", docmodel.FormatImage},
	}
	for _, tt := range tests {
		f, err := pipe.Detect(tt.name)
		if err != nil {
			t.Errorf("Detect(%q): %v", tt.name, err)
			continue
		}
		if f != tt.format {
			t.Errorf("Detect(%q) = %q, want %q", tt.name, f, tt.format)
		}
	}

	if _, err := pipe.Detect("file.xyz"); !errors.Is(err, ErrExtraction) {
		t.Errorf("unsupported format: %v", err)
	}
}

func TestExtract_TooLarge(t *testing.T) {
	pipe := New(Config{MaxFileSize: 4})
	if _, err := pipe.Extract(context.Background(), "a.txt", []byte("12345")); !errors.Is(err, ErrExtraction) {
		t.Fatalf("got %v", err)
	}
}

func TestExtractText_KeepsParagraphs(t *testing.T) {
	doc, err := New(Config{}).Extract(context.Background(), "a.txt",
		[]byte("\uFEFFFirst line  \r\nsecond line\r\n\r\n\r\n\r\nNext paragraph\n\n"))
	if err != nil {
		t.Fatal(err)
	}
	want := "First line\nsecond line\n\nNext paragraph"
	if doc.Text != want {
		t.Fatalf("got %q, want %q", doc.Text, want)
	}
	if doc.Format != docmodel.FormatText || len(doc.Diagnostics) != 0 {
		t.Fatalf("doc: %+v", doc)
	}
}

func buildDocx(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, err := w.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body + `</w:body></w:document>`))
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtractDocx_Runs(t *testing.T) {
	data := buildDocx(t, `
<w:p><w:pPr><w:jc w:val="center"/></w:pPr>
  <w:r><w:rPr><w:rFonts w:ascii="Arial"/><w:b/><w:sz w:val="28"/></w:rPr><w:t>Lease Agreement</w:t></w:r></w:p>
<w:p><w:pPr><w:pStyle w:val="Normal"/></w:pPr>
  <w:r><w:t xml:space="preserve">The tenant </w:t></w:r>
  <w:r><w:rPr><w:i/><w:b w:val="0"/></w:rPr><w:t>shall</w:t></w:r>
  <w:r><w:t xml:space="preserve"> pay rent.</w:t></w:r></w:p>
<w:p></w:p>`)

	doc, err := New(Config{}).Extract(context.Background(), "lease.docx", data)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Text != "Lease Agreement\n\nThe tenant shall pay rent." {
		t.Fatalf("text: %q", doc.Text)
	}
	if len(doc.Runs) != 4 {
		t.Fatalf("runs: %+v", doc.Runs)
	}
	title := doc.Runs[0]
	if title.FontName != "Arial" || *title.Bold != true || *title.FontSize != 14 || title.Alignment != "center" {
		t.Errorf("title run: %+v", title)
	}
	shall := doc.Runs[2]
	if shall.Text != "shall" || *shall.Italic != true || *shall.Bold != false || shall.FontSize != nil {
		t.Errorf("shall run: %+v", shall)
	}
}

func TestExtractDocx_CorruptBecomesDiagnostic(t *testing.T) {
	doc, err := New(Config{}).Extract(context.Background(), "broken.docx", []byte("not a zip"))
	if err != nil {
		t.Fatalf("parse failures must not fail extraction: %v", err)
	}
	if doc.Text != "" || len(doc.Diagnostics) != 2 {
		t.Fatalf("doc: %+v", doc)
	}
	if !strings.Contains(doc.Diagnostics[0], "native docx extraction failed") {
		t.Fatalf("diagnostic: %v", doc.Diagnostics)
	}
}

func TestDOCX_XMLBomb(t *testing.T) {
	// WHAT: DOCX with deeply nested XML returns depth error.
	// WHY: XML bomb defense.
	var body strings.Builder
	for range 300 {
		body.WriteString("<w:p>")
	}
	body.WriteString("<w:r><w:t>deep</w:t></w:r>")
	for range 300 {
		body.WriteString("</w:p>")
	}

	_, _, err := extractDocx(buildDocx(t, body.String()))
	if err == nil || !strings.Contains(err.Error(), "nesting depth") {
		t.Fatalf("expected nesting depth error, got %v", err)
	}
}

func TestExtractHTML(t *testing.T) {
	page := `<html><head><title>Lease</title><style>p{}</style></head><body>
<nav>Home | About</nav>
<h1>Lease Agreement</h1>
<p>The tenant shall pay rent.</p>
<p style="display:none">Hidden clause</p>
<ul><li>Deposit: one month</li><li>Term: one year</li></ul>
<footer>Copyright</footer></body></html>`

	doc, err := New(Config{}).Extract(context.Background(), "lease.html", []byte(page))
	if err != nil {
		t.Fatal(err)
	}
	want := "Lease Agreement\n\nThe tenant shall pay rent.\n\nDeposit: one month\n\nTerm: one year"
	if doc.Text != want {
		t.Fatalf("got %q", doc.Text)
	}
}

type fakeOCR struct {
	text string
	err  error
}

func (fakeOCR) Name() string { return "fake" }

func (f fakeOCR) Recognize(context.Context, image.Image) (ocr.Result, error) {
	return ocr.Result{Text: f.text}, f.err
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 10, 10))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtractImage_OCR(t *testing.T) {
	pipe := New(Config{Renderer: render.New(render.Config{}), OCR: fakeOCR{text: "The tenant shall pay rent."}})
	doc, err := pipe.Extract(context.Background(), "scan.png", pngBytes(t))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Text != "The tenant shall pay rent." || len(doc.Pages) != 1 {
		t.Fatalf("doc: %q pages=%d", doc.Text, len(doc.Pages))
	}
	if len(doc.Diagnostics) != 1 || !strings.Contains(doc.Diagnostics[0], "fake OCR") {
		t.Fatalf("diagnostics: %v", doc.Diagnostics)
	}
}

func TestExtractImage_NoOCR(t *testing.T) {
	pipe := New(Config{Renderer: render.New(render.Config{})})
	doc, err := pipe.Extract(context.Background(), "scan.png", pngBytes(t))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Text != "" || !doc.RasterBacked() {
		t.Fatalf("doc: %+v", doc)
	}
	if len(doc.Diagnostics) != 2 {
		t.Fatalf("expected OCR-unavailable and empty-text diagnostics, got %v", doc.Diagnostics)
	}
}

func TestExtractImage_OCRFailure(t *testing.T) {
	pipe := New(Config{Renderer: render.New(render.Config{}), OCR: fakeOCR{err: errors.New("tesseract crashed")}})
	doc, err := pipe.Extract(context.Background(), "scan.png", pngBytes(t))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Text != "" || !strings.Contains(strings.Join(doc.Diagnostics, "|"), "tesseract crashed") {
		t.Fatalf("doc: %+v", doc)
	}
}

func TestSupportedFormats(t *testing.T) {
	pipe := New(Config{})
	for _, ext := range SupportedFormats() {
		if _, err := pipe.Detect("x" + ext); err != nil {
			t.Errorf("advertised %s but Detect fails: %v", ext, err)
		}
	}
}
