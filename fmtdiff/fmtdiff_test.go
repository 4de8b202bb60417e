package fmtdiff

import (
	"context"
	"errors"
	"image"
	"reflect"
	"testing"

	"github.com/hazyhaar/docdiff/docmodel"
	"github.com/hazyhaar/docdiff/ocr"
)

func run(text string, size float64, bold bool) docmodel.Run {
	return docmodel.Run{Text: text, FontName: "Times", FontSize: docmodel.Float(size), Bold: docmodel.Bool(bold), Page: 1}
}

func TestCompare_AddedRemovedChanged(t *testing.T) {
	a := []docmodel.Run{run("Article 1", 14, true), run("Payment terms", 11, false), run("Old clause", 11, false), run(".", 11, false)}
	b := []docmodel.Run{run("Article 1", 16, true), run("Payment terms", 11, false), run("New clause", 11, false)}

	rep := New(Config{}, nil).Compare(a, b)

	if len(rep.Added) != 1 || rep.Added[0].Text != "New clause" {
		t.Fatalf("added: %+v", rep.Added)
	}
	if len(rep.Removed) != 1 || rep.Removed[0].Text != "Old clause" {
		t.Fatalf("removed: %+v", rep.Removed)
	}
	if len(rep.Changed) != 1 {
		t.Fatalf("changed: %+v", rep.Changed)
	}
	c := rep.Changed[0]
	if c.Text != "Article 1" || len(c.Differences) != 1 {
		t.Fatalf("changed entry: %+v", c)
	}
	fs := c.Differences["font_size"]
	if fs.Before != 14.0 || fs.After != 16.0 {
		t.Fatalf("font_size change: %+v", fs)
	}
}

func TestCompare_Symmetry(t *testing.T) {
	a := []docmodel.Run{run("alpha", 10, false), run("beta", 10, true), run("gamma", 12, false)}
	b := []docmodel.Run{run("beta", 10, false), run("gamma", 12, false), run("delta", 9, false)}
	e := New(Config{}, nil)

	ab, ba := e.Compare(a, b), e.Compare(b, a)

	if !reflect.DeepEqual(texts(ab.Added), texts(ba.Removed)) || !reflect.DeepEqual(texts(ab.Removed), texts(ba.Added)) {
		t.Fatalf("added/removed not swapped: ab=%+v ba=%+v", ab, ba)
	}
	if len(ab.Changed) != len(ba.Changed) {
		t.Fatalf("changed sets differ: %d vs %d", len(ab.Changed), len(ba.Changed))
	}
	for i := range ab.Changed {
		if ab.Changed[i].Text != ba.Changed[i].Text {
			t.Fatalf("changed keys differ: %q vs %q", ab.Changed[i].Text, ba.Changed[i].Text)
		}
	}
}

func TestIndex_LastWriteWins(t *testing.T) {
	idx := New(Config{}, nil).Index([]docmodel.Run{run("Total", 10, false), run("  Total ", 12, true), run("x", 10, false)})
	if len(idx) != 1 {
		t.Fatalf("expected 1 key, got %d", len(idx))
	}
	if got := *idx["Total"].FontSize; got != 12 {
		t.Fatalf("later run must win, got size %v", got)
	}
}

func TestCompare_IgnoresAttributesMissingOnOneSide(t *testing.T) {
	a := []docmodel.Run{{Text: "Signature", FontName: "Arial", Page: 1, Note: "native"}}
	b := []docmodel.Run{{Text: "Signature", FontSize: docmodel.Float(9), Page: 3, Note: "approximate"}}
	if rep := New(Config{}, nil).Compare(a, b); len(rep.Changed) != 0 {
		t.Fatalf("expected no change, got %+v", rep.Changed)
	}
}

type fakeOCR struct {
	words []ocr.Word
	err   error
}

func (f *fakeOCR) Name() string { return "fake" }

func (f *fakeOCR) Recognize(context.Context, image.Image) (ocr.Result, error) {
	if f.err != nil {
		return ocr.Result{}, f.err
	}
	return ocr.Result{Words: f.words}, nil
}

func TestCompareDocuments_ScannedFallback(t *testing.T) {
	page := image.NewGray(image.Rect(0, 0, 100, 100))
	scanned := &docmodel.Document{ID: "a", Format: docmodel.FormatPDF, Pages: []image.Image{page}}
	native := &docmodel.Document{ID: "b", Format: docmodel.FormatText}

	engine := New(Config{}, &fakeOCR{words: []ocr.Word{
		{Text: "Lease", Bounds: ocr.Region{X: 1, Y: 2, Width: 30, Height: 12}},
	}})
	rep := engine.CompareDocuments(context.Background(), scanned, native)

	if len(rep.Removed) != 1 || rep.Removed[0].Text != "Lease" {
		t.Fatalf("expected OCR run in removed, got %+v", rep.Removed)
	}
	if rep.Removed[0].FontSize == nil || *rep.Removed[0].FontSize != 12 {
		t.Fatalf("font size from box height: %+v", rep.Removed[0])
	}
	if rep.Added == nil || rep.Changed == nil {
		t.Fatal("report slices must be non-nil")
	}
}

func TestCompareDocuments_ZeroRunsOCRFailureStillWellFormed(t *testing.T) {
	page := image.NewGray(image.Rect(0, 0, 10, 10))
	a := &docmodel.Document{ID: "a", Pages: []image.Image{page}}
	b := &docmodel.Document{ID: "b", Pages: []image.Image{page}}

	rep := New(Config{}, &fakeOCR{err: errors.New("tesseract missing")}).CompareDocuments(context.Background(), a, b)

	if rep.Added == nil || rep.Removed == nil || rep.Changed == nil {
		t.Fatalf("report must be well formed: %+v", rep)
	}
	if rep.Outcome.State != docmodel.OutcomeDegraded {
		t.Fatalf("outcome: %+v", rep.Outcome)
	}
}

func TestDifferences(t *testing.T) {
	rep := New(Config{}, nil).Compare(
		[]docmodel.Run{run("Heading", 12, false)},
		[]docmodel.Run{run("Heading", 12, true)})
	diffs := Differences(rep)
	if len(diffs) != 1 || diffs[0].Type != docmodel.FormatChange || diffs[0].Location.TextKey != "Heading" {
		t.Fatalf("got %+v", diffs)
	}
}

func texts(runs []docmodel.Run) []string {
	out := make([]string, 0, len(runs))
	for _, r := range runs {
		out = append(out, r.Text)
	}
	return out
}
