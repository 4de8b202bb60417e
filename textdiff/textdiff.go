// Package textdiff aligns two texts with the longest-matching-block
// algorithm (Ratcliff/Obershelp, as in Python's difflib) at line, word and
// paragraph granularity.
//
// Usage:
//
//	eng := textdiff.New(textdiff.Config{})
//	rep := eng.Compare(original, modified)
//	for _, d := range rep.Differences() { ... }
package textdiff

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/hazyhaar/docdiff/docmodel"
)

// OpTag names an alignment opcode.
type OpTag string

const (
	OpEqual   OpTag = "equal"
	OpReplace OpTag = "replace"
	OpDelete  OpTag = "delete"
	OpInsert  OpTag = "insert"
)

// Op is one opcode over half-open ranges a[I1:I2] and b[J1:J2].
type Op struct {
	Tag OpTag `json:"tag"`
	I1  int   `json:"i1"`
	I2  int   `json:"i2"`
	J1  int   `json:"j1"`
	J2  int   `json:"j2"`
}

// Layer is the alignment of one token granularity.
type Layer struct {
	Unit        string                `json:"unit"`
	A           []string              `json:"-"`
	B           []string              `json:"-"`
	Ops         []Op                  `json:"ops"`
	Differences []docmodel.Difference `json:"differences"`
}

// Report is the full text comparison.
type Report struct {
	Lines      Layer                 `json:"lines"`
	Words      Layer                 `json:"words"`
	Paragraphs []docmodel.Difference `json:"paragraphs"`
	Similarity float64               `json:"similarity"`
	Notes      []string              `json:"notes,omitempty"`

	// paragraph index of each line, -1 for blank lines
	origPara, modPara []int
}

// Differences returns the top-level differences of the comparison: line
// additions and deletions, paragraph modifications, and replaced lines that
// no paragraph modification covers. Those are reported as a deletion of the
// old lines plus an addition of the new ones.
func (r *Report) Differences() []docmodel.Difference {
	origCov, modCov := map[int]bool{}, map[int]bool{}
	for _, d := range r.Paragraphs {
		if d.Type != docmodel.Modification || d.Location.Paragraph == nil || d.Location.ModPara == nil {
			continue
		}
		origCov[*d.Location.Paragraph] = true
		modCov[*d.Location.ModPara] = true
	}

	var out []docmodel.Difference
	for _, d := range r.Lines.Differences {
		rg := d.Location.Range
		if d.Type != docmodel.Modification || rg == nil {
			out = append(out, d)
			continue
		}
		if covered(r.origPara, origCov, rg.OrigStart, rg.OrigEnd) &&
			covered(r.modPara, modCov, rg.ModStart, rg.ModEnd) {
			continue
		}
		out = append(out, splitReplace(r.Lines, *rg)...)
	}
	return append(out, r.Paragraphs...)
}

// Structured returns the word and line layers with the paragraph notes on
// the outcome.
func (r *Report) Structured() docmodel.TextReport {
	out := docmodel.TextReport{
		Words:   orEmpty(r.Words.Differences),
		Lines:   orEmpty(r.Lines.Differences),
		Outcome: docmodel.NewOutcome("text"),
	}
	for _, n := range r.Notes {
		out.Outcome.Notef("%s", n)
	}
	return out
}

func orEmpty(d []docmodel.Difference) []docmodel.Difference {
	if d == nil {
		return []docmodel.Difference{}
	}
	return d
}

// covered reports whether every non-blank line in [from, to) belongs to a
// paragraph in cov.
func covered(para []int, cov map[int]bool, from, to int) bool {
	for i := from; i < to; i++ {
		if i >= len(para) {
			return false
		}
		if para[i] >= 0 && !cov[para[i]] {
			return false
		}
	}
	return true
}

func splitReplace(l Layer, rg docmodel.TokenRange) []docmodel.Difference {
	var out []docmodel.Difference
	if old := strings.Join(l.A[rg.OrigStart:rg.OrigEnd], "\n"); strings.TrimSpace(old) != "" {
		out = append(out, docmodel.Difference{
			Type:            docmodel.Deletion,
			Location:        docmodel.RangeLocation(l.Unit, rg.OrigStart, rg.OrigEnd, rg.ModStart, rg.ModStart),
			OriginalContent: old,
			Importance:      docmodel.ImportanceMedium,
		})
	}
	if repl := strings.Join(l.B[rg.ModStart:rg.ModEnd], "\n"); strings.TrimSpace(repl) != "" {
		out = append(out, docmodel.Difference{
			Type:            docmodel.Addition,
			Location:        docmodel.RangeLocation(l.Unit, rg.OrigEnd, rg.OrigEnd, rg.ModStart, rg.ModEnd),
			ModifiedContent: repl,
			Importance:      docmodel.ImportanceMedium,
		})
	}
	return out
}

// Config tunes the engine.
type Config struct {
	// MaxPairsPerBlock bounds the (original, modified) paragraph pairs emitted
	// for one replaced block. Larger blocks are paired positionally.
	// Default: 25.
	MaxPairsPerBlock int `json:"max_pairs_per_block" yaml:"max_pairs_per_block"`
}

func (c *Config) defaults() {
	if c.MaxPairsPerBlock <= 0 {
		c.MaxPairsPerBlock = 25
	}
}

// Engine computes text diffs. It holds no mutable state.
type Engine struct {
	cfg Config
}

// New creates an Engine.
func New(cfg Config) *Engine {
	cfg.defaults()
	return &Engine{cfg: cfg}
}

// Compare runs every granularity over the two texts.
func (e *Engine) Compare(a, b string) Report {
	rep := Report{
		Lines: Lines(a, b),
		Words: Words(a, b),
	}
	rep.Paragraphs, rep.Notes = e.Paragraphs(a, b)
	rep.Similarity = Similarity(a, b)
	rep.origPara = paragraphIndex(rep.Lines.A)
	rep.modPara = paragraphIndex(rep.Lines.B)
	return rep
}

// Lines aligns the texts line by line.
func Lines(a, b string) Layer {
	return align("line", SplitLines(a), SplitLines(b), "\n")
}

// Words aligns whitespace-delimited words.
func Words(a, b string) Layer {
	return align("word", strings.Fields(a), strings.Fields(b), " ")
}

// Similarity is 2*M/T over the word sequences, M being the total size of the
// matched blocks and T the combined length. Two empty texts are identical.
func Similarity(a, b string) float64 {
	return difflib.NewMatcher(strings.Fields(a), strings.Fields(b)).Ratio()
}

// Opcodes aligns two token sequences.
func Opcodes(a, b []string) []Op {
	codes := difflib.NewMatcher(a, b).GetOpCodes()
	ops := make([]Op, 0, len(codes))
	for _, c := range codes {
		ops = append(ops, Op{Tag: tagName(c.Tag), I1: c.I1, I2: c.I2, J1: c.J1, J2: c.J2})
	}
	return ops
}

// Apply replays ops against a, taking inserted and replacing tokens from b.
// Apply(a, b, Opcodes(a, b)) equals b.
func Apply(a, b []string, ops []Op) []string {
	out := make([]string, 0, len(b))
	for _, op := range ops {
		switch op.Tag {
		case OpEqual:
			out = append(out, a[op.I1:op.I2]...)
		case OpReplace, OpInsert:
			out = append(out, b[op.J1:op.J2]...)
		}
	}
	return out
}

func align(unit string, a, b []string, sep string) Layer {
	layer := Layer{Unit: unit, A: a, B: b, Ops: Opcodes(a, b)}
	for _, op := range layer.Ops {
		loc := docmodel.RangeLocation(unit, op.I1, op.I2, op.J1, op.J2)
		switch op.Tag {
		case OpInsert:
			layer.Differences = append(layer.Differences, docmodel.Difference{
				Type:            docmodel.Addition,
				Location:        loc,
				ModifiedContent: strings.Join(b[op.J1:op.J2], sep),
				Importance:      docmodel.ImportanceMedium,
			})
		case OpDelete:
			layer.Differences = append(layer.Differences, docmodel.Difference{
				Type:            docmodel.Deletion,
				Location:        loc,
				OriginalContent: strings.Join(a[op.I1:op.I2], sep),
				Importance:      docmodel.ImportanceMedium,
			})
		case OpReplace:
			layer.Differences = append(layer.Differences, docmodel.Difference{
				Type:            docmodel.Modification,
				Location:        loc,
				OriginalContent: strings.Join(a[op.I1:op.I2], sep),
				ModifiedContent: strings.Join(b[op.J1:op.J2], sep),
			})
		}
	}
	return layer
}

func tagName(t byte) OpTag {
	switch t {
	case 'r':
		return OpReplace
	case 'd':
		return OpDelete
	case 'i':
		return OpInsert
	}
	return OpEqual
}

// SplitLines splits on \n, \r\n or \r. A trailing newline does not produce an
// empty last line, and an empty text has no lines.
func SplitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// SplitParagraphs groups the lines of s into paragraphs separated by blank
// or whitespace-only lines.
func SplitParagraphs(s string) []string {
	lines := SplitLines(s)
	idx := paragraphIndex(lines)
	var out []string
	for i, line := range lines {
		switch {
		case idx[i] < 0:
		case idx[i] == len(out):
			out = append(out, line)
		default:
			out[idx[i]] += "\n" + line
		}
	}
	for i := range out {
		out[i] = strings.TrimSpace(out[i])
	}
	return out
}

// paragraphIndex maps each line to its paragraph number, or -1 for a blank
// line.
func paragraphIndex(lines []string) []int {
	idx := make([]int, len(lines))
	p, open := -1, false
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			idx[i], open = -1, false
			continue
		}
		if !open {
			p, open = p+1, true
		}
		idx[i] = p
	}
	return idx
}
