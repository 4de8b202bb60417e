// Package aggregate merges the engine reports of one comparison into a
// Result with counters and a one-line synopsis.
package aggregate

import (
	"fmt"
	"strings"
	"time"

	"github.com/hazyhaar/docdiff/docmodel"
)

// Input gathers everything the engines produced for one job.
type Input struct {
	ComparisonID string
	OriginalID   string
	ModifiedID   string

	// Differences are the scored text differences followed by the
	// formatting and visual differences.
	Differences []docmodel.Difference
	Similarity  float64

	Text       docmodel.TextReport
	Semantic   docmodel.SemanticReport
	Formatting docmodel.FormattingReport
	Visual     docmodel.VisualReport
	Dates      docmodel.DateReport

	// Outcomes of stages that have no sub-report of their own (extraction,
	// scorer).
	Extra []docmodel.Outcome
}

// Build assembles the Result. now is injected for deterministic tests.
func Build(in Input, now time.Time) *docmodel.Result {
	diffs := in.Differences
	if diffs == nil {
		diffs = []docmodel.Difference{}
	}
	counts := Count(diffs)

	res := &docmodel.Result{
		ComparisonID:       in.ComparisonID,
		OriginalDocumentID: in.OriginalID,
		ModifiedDocumentID: in.ModifiedID,
		Timestamp:          now.UTC(),
		Differences:        diffs,
		Summary:            Synopsis(counts),
		SimilarityScore:    docmodel.Round4(clamp(in.Similarity)),
		Counts:             counts,
		Text:               in.Text,
		Semantic:           in.Semantic,
		Formatting:         in.Formatting,
		Visual:             in.Visual,
		Dates:              in.Dates,
	}
	res.Diagnostics = append(res.Diagnostics, in.Extra...)
	res.Diagnostics = append(res.Diagnostics,
		in.Text.Outcome, in.Semantic.Outcome, in.Formatting.Outcome, in.Visual.Outcome, in.Dates.Outcome)
	return res
}

// Count tallies differences by type and importance.
func Count(diffs []docmodel.Difference) docmodel.Counts {
	var c docmodel.Counts
	c.Total = len(diffs)
	for _, d := range diffs {
		switch d.Type {
		case docmodel.Addition:
			c.Additions++
		case docmodel.Deletion:
			c.Deletions++
		case docmodel.Modification:
			c.Modifications++
		case docmodel.FormatChange:
			c.FormatChanges++
		case docmodel.VisualChange:
			c.VisualChanges++
		}
		switch d.Importance {
		case docmodel.ImportanceHigh:
			c.High++
		case docmodel.ImportanceMedium:
			c.Medium++
		case docmodel.ImportanceLow:
			c.Low++
		}
	}
	return c
}

// Synopsis renders the counters as one or two sentences. The importance
// sentence is omitted when no difference carries an importance.
func Synopsis(c docmodel.Counts) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d differences: %d additions, %d deletions, %d modifications.",
		c.Total, c.Additions, c.Deletions, c.Modifications)
	if c.FormatChanges > 0 || c.VisualChanges > 0 {
		fmt.Fprintf(&sb, " Also %d formatting and %d visual changes.", c.FormatChanges, c.VisualChanges)
	}
	if c.High+c.Medium+c.Low > 0 {
		fmt.Fprintf(&sb, " %d high, %d medium, %d low importance.", c.High, c.Medium, c.Low)
	}
	return sb.String()
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
