// Package semdiff flags sentences of the original document whose closest
// counterpart in the modified document is semantically distant.
//
// Sentences are segmented with a Punkt tokenizer trained for English (it
// knows abbreviations such as "Inc." or "e.g."), embedded through the
// configured Embedder and compared exhaustively by cosine similarity.
package semdiff

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"

	"github.com/hazyhaar/docdiff/capability"
	"github.com/hazyhaar/docdiff/docmodel"
	"github.com/hazyhaar/docdiff/embedding"
)

const (
	// NoteMeaningMayDiffer is attached to every reported match.
	NoteMeaningMayDiffer = "meaning may differ"

	noteNoEmbedder = "semantic model unavailable, semantic diff skipped"
	noteEmpty      = "one or both documents are empty or could not be processed for semantic diff"
)

// Config tunes the engine.
type Config struct {
	// Threshold below which a best match is reported. Default: 0.75.
	Threshold float64 `json:"threshold" yaml:"threshold"`

	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.Threshold <= 0 {
		c.Threshold = 0.75
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

type tokenizer interface {
	Tokenize(text string) []*sentences.Sentence
}

// Engine is safe for concurrent use.
type Engine struct {
	cfg       Config
	embedder  capability.Embedder
	tokenizer tokenizer
}

// New creates an Engine. embedder may be nil.
func New(cfg Config, embedder capability.Embedder) (*Engine, error) {
	cfg.defaults()
	tok, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("load sentence tokenizer: %w", err)
	}
	return &Engine{cfg: cfg, embedder: embedder, tokenizer: tok}, nil
}

// Sentences segments text into trimmed, non-empty sentences.
func (e *Engine) Sentences(text string) []string {
	var out []string
	for _, s := range e.tokenizer.Tokenize(text) {
		if t := strings.TrimSpace(s.Text); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Compare reports, in source order of a, every sentence whose best cosine
// match in b is below the threshold. A missing embedder or an empty side
// yields a single note instead of matches.
func (e *Engine) Compare(ctx context.Context, a, b string) docmodel.SemanticReport {
	rep := docmodel.SemanticReport{
		Matches: []docmodel.SemanticMatch{},
		Outcome: docmodel.NewOutcome("semantic"),
	}
	if e.embedder == nil {
		rep.Outcome.Degradef(noteNoEmbedder)
		return rep
	}

	sa, sb := e.Sentences(a), e.Sentences(b)
	if len(sa) == 0 || len(sb) == 0 {
		rep.Outcome.Degradef(noteEmpty)
		return rep
	}

	vecs, err := e.embedder.EmbedBatch(ctx, append(append([]string{}, sa...), sb...))
	if err != nil {
		e.cfg.Logger.Warn("semantic diff degraded", "error", err)
		rep.Outcome.Degradef("embedding failed: %v", err)
		return rep
	}
	if len(vecs) != len(sa)+len(sb) {
		rep.Outcome.Degradef("embedding returned %d vectors for %d sentences", len(vecs), len(sa)+len(sb))
		return rep
	}
	va, vb := vecs[:len(sa)], vecs[len(sa):]

	for i, s := range sa {
		best, bestJ := -1.0, 0
		for j := range vb {
			if sim := embedding.Cosine(va[i], vb[j]); sim > best {
				best, bestJ = sim, j
			}
		}
		if best < e.cfg.Threshold {
			rep.Matches = append(rep.Matches, docmodel.SemanticMatch{
				OriginalSentence: s,
				MatchedSentence:  sb[bestJ],
				Similarity:       docmodel.Round4(embedding.Clamp01(best)),
				Note:             NoteMeaningMayDiffer,
			})
		}
	}
	rep.Outcome.Notef("%d of %d sentences below similarity %.2f", len(rep.Matches), len(sa), e.cfg.Threshold)
	return rep
}
