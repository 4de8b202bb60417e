package textdiff

import (
	"reflect"
	"strings"
	"testing"

	"github.com/hazyhaar/docdiff/docmodel"
)

func TestCompare_Identity(t *testing.T) {
	text := "Article 1\nThe tenant shall pay rent.\n\nArticle 2\nThe landlord shall repair."
	rep := New(Config{}).Compare(text, text)

	if rep.Similarity != 1.0 {
		t.Fatalf("similarity: got %v, want 1.0", rep.Similarity)
	}
	if n := len(rep.Differences()); n != 0 {
		t.Fatalf("expected no differences, got %d: %+v", n, rep.Differences())
	}
}

func TestSimilarity_Bounds(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 1.0},
		{"a b c", "a b c", 1.0},
		{"a b c", "x y z", 0.0},
		{"a b", "a c", 0.5},
	}
	for _, tt := range tests {
		if got := Similarity(tt.a, tt.b); got != tt.want {
			t.Errorf("Similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestOpcodes_RoundTrip(t *testing.T) {
	cases := [][2]string{
		{"a b c d e", "a x c d f g"},
		{"", "one two"},
		{"one two", ""},
		{"the quick brown fox", "the slow brown dog jumps"},
		{"same", "same"},
	}
	for _, c := range cases {
		a, b := strings.Fields(c[0]), strings.Fields(c[1])
		got := Apply(a, b, Opcodes(a, b))
		if len(got) == 0 && len(b) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, b) {
			t.Errorf("round trip %q -> %q: got %q", c[0], c[1], got)
		}
	}
}

func TestLines_Mapping(t *testing.T) {
	layer := Lines("keep\nold\nremoved", "keep\nnew\nremoved\nadded")

	var kinds []docmodel.DiffType
	for _, d := range layer.Differences {
		kinds = append(kinds, d.Type)
	}
	want := []docmodel.DiffType{docmodel.Modification, docmodel.Addition}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("kinds: got %v, want %v", kinds, want)
	}

	add := layer.Differences[1]
	if add.ModifiedContent != "added" || add.Importance != docmodel.ImportanceMedium {
		t.Fatalf("addition: %+v", add)
	}
	r := add.Location.Range
	if r == nil || r.Unit != "line" || r.ModStart != 3 || r.ModEnd != 4 {
		t.Fatalf("location: %+v", add.Location)
	}
}

func TestWords_Replace(t *testing.T) {
	layer := Words("The tenant shall pay rent monthly.", "The tenant may pay rent monthly.")
	if len(layer.Differences) != 1 {
		t.Fatalf("expected 1 word difference, got %d", len(layer.Differences))
	}
	d := layer.Differences[0]
	if d.Type != docmodel.Modification || d.OriginalContent != "shall" || d.ModifiedContent != "may" {
		t.Fatalf("got %+v", d)
	}
}

func TestCompare_SingleSentenceChange(t *testing.T) {
	rep := New(Config{}).Compare("The tenant shall pay rent monthly.", "The tenant may pay rent monthly.")
	diffs := rep.Differences()
	if len(diffs) != 1 {
		t.Fatalf("expected exactly 1 difference, got %d: %+v", len(diffs), diffs)
	}
	if diffs[0].Type != docmodel.Modification || diffs[0].Importance != docmodel.ImportanceHigh {
		t.Fatalf("got %+v", diffs[0])
	}
}

func TestParagraphs_CrossProduct(t *testing.T) {
	a := "intro\n\nold one\n\nold two\n\noutro"
	b := "intro\n\nnew one\n\nnew two\n\nnew three\n\noutro"

	diffs, notes := New(Config{}).Paragraphs(a, b)
	if len(notes) != 0 {
		t.Fatalf("unexpected notes: %v", notes)
	}
	if len(diffs) != 6 {
		t.Fatalf("expected 2x3 pairs, got %d", len(diffs))
	}
	for _, d := range diffs {
		if d.Importance != docmodel.ImportanceHigh || d.Metadata["pairing"] != "cross" {
			t.Fatalf("got %+v", d)
		}
	}
}

func TestParagraphs_CappedBlockPairsByPosition(t *testing.T) {
	a := "a1\n\na2\n\na3"
	b := "b1\n\nb2"

	diffs, notes := New(Config{MaxPairsPerBlock: 4}).Paragraphs(a, b)
	if len(notes) != 1 {
		t.Fatalf("expected a note for the capped block, got %v", notes)
	}
	if len(diffs) != 3 {
		t.Fatalf("expected 3 differences, got %d", len(diffs))
	}
	if diffs[0].Type != docmodel.Modification || diffs[1].Type != docmodel.Modification {
		t.Fatalf("first two must be modifications: %+v", diffs[:2])
	}
	if diffs[2].Type != docmodel.Deletion || diffs[2].OriginalContent != "a3" {
		t.Fatalf("surplus original paragraph: %+v", diffs[2])
	}
}

func TestSplitLines(t *testing.T) {
	if got := SplitLines(""); len(got) != 0 {
		t.Fatalf("empty text: %q", got)
	}
	if got := SplitLines("a\r\nb\n"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("got %q", got)
	}
}

func TestCompare_ReorderedParagraphs(t *testing.T) {
	a := "The tenant shall pay rent monthly.\n\nThe landlord maintains the roof."
	b := "The landlord maintains the roof.\n\nThe tenant may pay rent quarterly."

	rep := New(Config{}).Compare(a, b)
	if len(rep.Paragraphs) != 0 {
		t.Fatalf("paragraph alignment should be delete+insert, got %+v", rep.Paragraphs)
	}
	diffs := rep.Differences()
	if len(diffs) == 0 {
		t.Fatal("reordered and reworded text must not compare equal")
	}

	var deleted, added bool
	for _, d := range diffs {
		if d.Importance != docmodel.ImportanceMedium {
			t.Errorf("line change importance: %+v", d)
		}
		switch {
		case d.Type == docmodel.Deletion && d.OriginalContent == "The tenant shall pay rent monthly.":
			deleted = true
		case d.Type == docmodel.Addition && d.ModifiedContent == "The tenant may pay rent quarterly.":
			added = true
		case d.Type == docmodel.Modification:
			t.Errorf("uncovered line replace must split into deletion and addition: %+v", d)
		}
	}
	if !deleted || !added {
		t.Fatalf("missing old/new clause in %+v", diffs)
	}
}

func TestCompare_ReplacedLineCoveredByParagraph(t *testing.T) {
	a := "Article 1\nThe tenant shall pay rent.\n\nArticle 2"
	b := "Article 1\nThe tenant may pay rent.\n\nArticle 2"

	rep := New(Config{}).Compare(a, b)
	diffs := rep.Differences()
	if len(diffs) != 1 || diffs[0].Location.Kind != docmodel.LocParagraph {
		t.Fatalf("expected the paragraph modification only, got %+v", diffs)
	}
}

func TestSplitParagraphs(t *testing.T) {
	got := SplitParagraphs("\n  first line\nsecond line\n \t\n\n\nnext\r\n\r\nlast\n")
	want := []string{"first line\nsecond line", "next", "last"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	if got := SplitParagraphs(" \n\n"); len(got) != 0 {
		t.Fatalf("blank text: %q", got)
	}
}
