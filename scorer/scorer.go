// Package scorer assigns importance and confidence to modifications.
//
// Similarity between the original and modified content is the embedding
// cosine when an Embedder is configured and answers, otherwise the Jaccard
// overlap of lowercased word sets. Confidence is 1 - similarity.
package scorer

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/hazyhaar/docdiff/capability"
	"github.com/hazyhaar/docdiff/docmodel"
	"github.com/hazyhaar/docdiff/embedding"
)

// LegalKeywords are terms whose appearance or disappearance makes a change
// high importance regardless of similarity. Matching is by substring of the
// lowercased text, so "terminated" counts as "terminate".
var LegalKeywords = []string{
	"shall", "must", "will not", "required", "payment", "terminate",
	"warranty", "liability", "damages", "agree", "obligation",
}

// Config tunes the thresholds.
type Config struct {
	// HighBelow: similarity under it is high importance. Default: 0.6.
	HighBelow float64 `json:"high_below" yaml:"high_below"`
	// MediumBelow: similarity under it is medium importance. Default: 0.85.
	MediumBelow float64 `json:"medium_below" yaml:"medium_below"`

	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.HighBelow <= 0 {
		c.HighBelow = 0.6
	}
	if c.MediumBelow <= 0 {
		c.MediumBelow = 0.85
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Scorer is safe for concurrent use.
type Scorer struct {
	cfg      Config
	embedder capability.Embedder
}

// New creates a Scorer. embedder may be nil.
func New(cfg Config, embedder capability.Embedder) *Scorer {
	cfg.defaults()
	return &Scorer{cfg: cfg, embedder: embedder}
}

// Score returns a copy of diffs with every modification scored. Other
// differences are returned unchanged. Embedding is done in one batch; if it
// fails every pair falls back to Jaccard and a note is added to out.
func (s *Scorer) Score(ctx context.Context, diffs []docmodel.Difference, out *docmodel.Outcome) []docmodel.Difference {
	res := make([]docmodel.Difference, len(diffs))
	copy(res, diffs)

	var idx []int
	for i, d := range res {
		if d.Type == docmodel.Modification {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return res
	}

	sims := s.embeddingSimilarities(ctx, res, idx, out)
	for k, i := range idx {
		d := &res[i]
		d.Metadata = maps.Clone(d.Metadata)
		sim := JaccardSimilarity(d.OriginalContent, d.ModifiedContent)
		method := "jaccard"
		if sims != nil {
			sim, method = sims[k], "embedding"
		}
		sim = embedding.Clamp01(sim)

		d.Confidence = docmodel.Float(docmodel.Round4(1 - sim))
		d.Importance = s.Classify(d.OriginalContent, d.ModifiedContent, sim)
		d.SetMeta("semantic_similarity", docmodel.Round4(sim))
		d.SetMeta("similarity_method", method)
	}
	return res
}

// Classify applies the importance policy: a change in legal keyword
// presence is high, then similarity bands.
func (s *Scorer) Classify(orig, mod string, sim float64) docmodel.Importance {
	if HasLegalKeyword(orig) != HasLegalKeyword(mod) {
		return docmodel.ImportanceHigh
	}
	switch {
	case sim < s.cfg.HighBelow:
		return docmodel.ImportanceHigh
	case sim < s.cfg.MediumBelow:
		return docmodel.ImportanceMedium
	}
	return docmodel.ImportanceLow
}

func (s *Scorer) embeddingSimilarities(ctx context.Context, diffs []docmodel.Difference, idx []int, out *docmodel.Outcome) []float64 {
	if s.embedder == nil {
		return nil
	}
	texts := make([]string, 0, 2*len(idx))
	for _, i := range idx {
		texts = append(texts, diffs[i].OriginalContent, diffs[i].ModifiedContent)
	}
	vecs, err := s.embedder.EmbedBatch(ctx, texts)
	if err == nil && len(vecs) != len(texts) {
		err = fmt.Errorf("embedding returned %d vectors for %d texts", len(vecs), len(texts))
	}
	if err != nil {
		s.cfg.Logger.Warn("scorer falling back to jaccard", "error", err)
		if out != nil {
			out.Degradef("embedding similarity unavailable, used word overlap: %v", err)
		}
		return nil
	}
	sims := make([]float64, len(idx))
	for k := range idx {
		sims[k] = embedding.Cosine(vecs[2*k], vecs[2*k+1])
	}
	return sims
}

// HasLegalKeyword reports whether any legal keyword occurs in text.
func HasLegalKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range LegalKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// JaccardSimilarity is |A∩B| / |A∪B| over lowercased whitespace-split words.
// Two empty texts are identical.
func JaccardSimilarity(a, b string) float64 {
	wa, wb := wordSet(a), wordSet(b)
	if len(wa) == 0 && len(wb) == 0 {
		return 1
	}
	inter := 0
	for w := range wa {
		if _, ok := wb[w]; ok {
			inter++
		}
	}
	union := len(wa) + len(wb) - inter
	return float64(inter) / float64(union)
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = struct{}{}
	}
	return set
}
