package textdiff

import (
	"fmt"

	"github.com/hazyhaar/docdiff/docmodel"
)

// Paragraphs aligns blank-line separated paragraphs. Every replaced block
// yields one high-importance modification per (original, modified) pair.
// When a block would produce more than MaxPairsPerBlock pairs, paragraphs are
// paired by position instead and the surplus on the longer side becomes
// plain deletions or additions; a note is returned for each such block.
func (e *Engine) Paragraphs(a, b string) ([]docmodel.Difference, []string) {
	pa, pb := SplitParagraphs(a), SplitParagraphs(b)

	var diffs []docmodel.Difference
	var notes []string
	for _, op := range Opcodes(pa, pb) {
		if op.Tag != OpReplace {
			continue
		}
		n, m := op.I2-op.I1, op.J2-op.J1
		if n*m <= e.cfg.MaxPairsPerBlock {
			for i := op.I1; i < op.I2; i++ {
				for j := op.J1; j < op.J2; j++ {
					d := paragraphModification(pa, pb, i, j)
					d.SetMeta("pairing", "cross")
					diffs = append(diffs, d)
				}
			}
			continue
		}

		notes = append(notes, fmt.Sprintf(
			"paragraphs %d-%d replaced by %d-%d: %d pairs exceed limit %d, paired by position",
			op.I1, op.I2, op.J1, op.J2, n*m, e.cfg.MaxPairsPerBlock))
		for k := 0; k < max(n, m); k++ {
			i, j := op.I1+k, op.J1+k
			switch {
			case k < n && k < m:
				d := paragraphModification(pa, pb, i, j)
				d.SetMeta("pairing", "positional")
				diffs = append(diffs, d)
			case k < n:
				diffs = append(diffs, docmodel.Difference{
					Type:            docmodel.Deletion,
					Location:        docmodel.ParagraphLocation(i, op.J2),
					OriginalContent: pa[i],
					Importance:      docmodel.ImportanceHigh,
					Metadata:        map[string]any{"pairing": "positional"},
				})
			default:
				diffs = append(diffs, docmodel.Difference{
					Type:            docmodel.Addition,
					Location:        docmodel.ParagraphLocation(op.I2, j),
					ModifiedContent: pb[j],
					Importance:      docmodel.ImportanceHigh,
					Metadata:        map[string]any{"pairing": "positional"},
				})
			}
		}
	}
	return diffs, notes
}

func paragraphModification(pa, pb []string, i, j int) docmodel.Difference {
	return docmodel.Difference{
		Type:            docmodel.Modification,
		Location:        docmodel.ParagraphLocation(i, j),
		OriginalContent: pa[i],
		ModifiedContent: pb[j],
		Importance:      docmodel.ImportanceHigh,
	}
}
