package visualdiff

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/hazyhaar/docdiff/docmodel"
)

func page(w, h int, draw func(x, y int) uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: draw(x, y)})
		}
	}
	return img
}

func stripes(x, y int) uint8 {
	if (x/4)%2 == 0 {
		return 20
	}
	return 230
}

func TestSSIM_Identical(t *testing.T) {
	p := page(40, 30, stripes)
	if got := SSIM(p, p); got != 1 {
		t.Fatalf("identical pages: got %v, want 1", got)
	}
}

func TestSSIM_DifferentIsLower(t *testing.T) {
	a := page(40, 40, stripes)
	b := page(40, 40, func(x, y int) uint8 {
		if (y/4)%2 == 0 {
			return 20
		}
		return 230
	})
	got := SSIM(a, b)
	if got >= 0.9 || got < -1 {
		t.Fatalf("different layouts should score low, got %v", got)
	}
}

func TestSSIM_ResizesSecondPage(t *testing.T) {
	a := page(40, 40, func(int, int) uint8 { return 128 })
	b := page(80, 80, func(int, int) uint8 { return 128 })
	if got := SSIM(a, b); got < 0.999 {
		t.Fatalf("uniform pages of different size: got %v", got)
	}
}

type stubDetector struct {
	failOn image.Image
}

func (s *stubDetector) Detect(_ context.Context, img image.Image) ([]docmodel.Detection, error) {
	if img == s.failOn {
		return nil, errors.New("model crashed")
	}
	return []docmodel.Detection{{Class: "signature", Confidence: 0.88, BBox: docmodel.BBox{Left: 1, Top: 1, Width: 5, Height: 3}}}, nil
}

func TestCompare_IdenticalSinglePage(t *testing.T) {
	p := page(32, 32, stripes)
	a := &docmodel.Document{ID: "a", Pages: []image.Image{p}}
	b := &docmodel.Document{ID: "b", Pages: []image.Image{p}}

	rep := New(Config{}, &stubDetector{}).Compare(context.Background(), a, b)

	if rep.AverageScore == nil || *rep.AverageScore != 1.0 {
		t.Fatalf("average score: %v", rep.AverageScore)
	}
	if len(rep.DetectionsA) != 1 || len(rep.DetectionsB) != 1 {
		t.Fatalf("detections: %+v / %+v", rep.DetectionsA, rep.DetectionsB)
	}
	if diffs := New(Config{}, nil).Differences(rep); len(diffs) != 0 {
		t.Fatalf("identical pages must not emit visual changes: %+v", diffs)
	}
}

func TestCompare_PageCountMismatch(t *testing.T) {
	p := page(16, 16, stripes)
	a := &docmodel.Document{Pages: []image.Image{p, p, p}}
	b := &docmodel.Document{Pages: []image.Image{p}}

	rep := New(Config{}, nil).Compare(context.Background(), a, b)
	if len(rep.PageScores) != 1 || rep.PageScores[0].Page != 1 {
		t.Fatalf("page scores: %+v", rep.PageScores)
	}
	if len(rep.Outcome.Notes) == 0 {
		t.Fatal("expected a page-count note")
	}
}

func TestCompare_DetectorFailureIsLocal(t *testing.T) {
	bad := page(16, 16, stripes)
	good := page(16, 16, func(int, int) uint8 { return 255 })
	a := &docmodel.Document{Pages: []image.Image{bad}}
	b := &docmodel.Document{Pages: []image.Image{good}}

	rep := New(Config{}, &stubDetector{failOn: bad}).Compare(context.Background(), a, b)

	if rep.Outcome.State != docmodel.OutcomeDegraded {
		t.Fatalf("outcome: %+v", rep.Outcome)
	}
	if len(rep.DetectionsA) != 0 || len(rep.DetectionsB) != 1 {
		t.Fatalf("detections: a=%+v b=%+v", rep.DetectionsA, rep.DetectionsB)
	}
	if len(rep.PageScores) != 1 {
		t.Fatalf("page score must still be computed: %+v", rep.PageScores)
	}
}

func TestCompare_MissingPagesOneSide(t *testing.T) {
	p := page(16, 16, stripes)
	rep := New(Config{}, &stubDetector{}).Compare(context.Background(),
		&docmodel.Document{}, &docmodel.Document{Pages: []image.Image{p}})

	if rep.AverageScore != nil || len(rep.PageScores) != 0 {
		t.Fatalf("no scores expected: %+v", rep)
	}
	if len(rep.DetectionsB) != 1 {
		t.Fatalf("detection must still run on document 2: %+v", rep.DetectionsB)
	}
}

func TestDifferences_LowScore(t *testing.T) {
	rep := docmodel.VisualReport{PageScores: []docmodel.PageScore{{Page: 1, Score: 0.99}, {Page: 2, Score: 0.4}}}
	diffs := New(Config{}, nil).Differences(rep)
	if len(diffs) != 1 {
		t.Fatalf("expected 1 difference, got %d", len(diffs))
	}
	d := diffs[0]
	if d.Type != docmodel.VisualChange || *d.Location.Page != 2 || d.Importance != docmodel.ImportanceHigh {
		t.Fatalf("got %+v", d)
	}
	if *d.Confidence != 0.6 {
		t.Fatalf("confidence: %v", *d.Confidence)
	}
}

func TestEngine_String(t *testing.T) {
	if got, want := New(Config{}, nil).String(), "visualdiff(threshold=0.98, detector=false)"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	e := New(Config{ChangeThreshold: 0.5}, &stubDetector{})
	if got, want := e.String(), "visualdiff(threshold=0.50, detector=true)"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
