package semdiff

import (
	"context"
	"errors"
	"testing"

	"github.com/hazyhaar/docdiff/docmodel"
)

// tableEmbedder returns a fixed vector per known sentence.
type tableEmbedder struct {
	vecs map[string][]float32
	err  error
}

func (e *tableEmbedder) Model() string { return "table" }

func (e *tableEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := e.vecs[t]
		if !ok {
			v = []float32{0, 0, 1}
		}
		out[i] = v
	}
	return out, nil
}

func newEngine(t *testing.T, emb *tableEmbedder) *Engine {
	t.Helper()
	var e *Engine
	var err error
	if emb == nil {
		e, err = New(Config{}, nil)
	} else {
		e, err = New(Config{}, emb)
	}
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestSentences_Abbreviations(t *testing.T) {
	e := newEngine(t, nil)
	got := e.Sentences("Mr. Smith signed the lease. The tenant pays rent.")
	if len(got) != 2 {
		t.Fatalf("expected 2 sentences, got %d: %q", len(got), got)
	}
	if got[0] != "Mr. Smith signed the lease." {
		t.Fatalf("first sentence: %q", got[0])
	}
}

func TestCompare_FlagsDistantSentences(t *testing.T) {
	emb := &tableEmbedder{vecs: map[string][]float32{
		"The tenant pays rent.":        {1, 0, 0},
		"The landlord fixes the roof.": {0, 1, 0},
		"Rent is paid by the tenant.":  {0.95, 0.05, 0},
		"The landlord may sell.":       {0.3, 0.2, 0.9},
	}}
	e := newEngine(t, emb)

	rep := e.Compare(context.Background(),
		"The tenant pays rent. The landlord fixes the roof.",
		"Rent is paid by the tenant. The landlord may sell.")

	if rep.Outcome.State != docmodel.OutcomeOK {
		t.Fatalf("outcome: %+v", rep.Outcome)
	}
	if len(rep.Matches) != 1 {
		t.Fatalf("expected 1 flagged sentence, got %d: %+v", len(rep.Matches), rep.Matches)
	}
	m := rep.Matches[0]
	if m.OriginalSentence != "The landlord fixes the roof." {
		t.Fatalf("original sentence: %q", m.OriginalSentence)
	}
	if m.Note != NoteMeaningMayDiffer {
		t.Fatalf("note: %q", m.Note)
	}
	if m.Similarity < 0 || m.Similarity >= 0.75 {
		t.Fatalf("similarity out of range: %v", m.Similarity)
	}
}

func TestCompare_NoEmbedder(t *testing.T) {
	rep := newEngine(t, nil).Compare(context.Background(), "A sentence.", "Another one.")
	if rep.Outcome.State != docmodel.OutcomeDegraded || len(rep.Outcome.Notes) != 1 {
		t.Fatalf("expected a single note, got %+v", rep.Outcome)
	}
	if len(rep.Matches) != 0 {
		t.Fatalf("no matches expected, got %d", len(rep.Matches))
	}
}

func TestCompare_EmptyDocument(t *testing.T) {
	rep := newEngine(t, &tableEmbedder{}).Compare(context.Background(), "   ", "Something here.")
	if rep.Outcome.State != docmodel.OutcomeDegraded || len(rep.Outcome.Notes) != 1 {
		t.Fatalf("expected a single note, got %+v", rep.Outcome)
	}
}

func TestCompare_EmbedderFailureDegrades(t *testing.T) {
	rep := newEngine(t, &tableEmbedder{err: errors.New("connection refused")}).
		Compare(context.Background(), "One.", "Two.")
	if rep.Outcome.State != docmodel.OutcomeDegraded {
		t.Fatalf("outcome: %+v", rep.Outcome)
	}
}
