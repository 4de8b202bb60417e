package docmodel

import (
	"fmt"
	"time"
)

// OutcomeState tells how completely an engine produced its report.
type OutcomeState string

const (
	OutcomeOK       OutcomeState = "ok"
	OutcomeDegraded OutcomeState = "degraded"
	OutcomeFatal    OutcomeState = "fatal"
)

// Outcome is attached to every engine report. Notes are informational when
// State is ok and explain the missing output when it is degraded.
type Outcome struct {
	Engine string       `json:"engine"`
	State  OutcomeState `json:"state"`
	Notes  []string     `json:"notes,omitempty"`
}

// NewOutcome returns an ok outcome for the named engine.
func NewOutcome(engine string) Outcome {
	return Outcome{Engine: engine, State: OutcomeOK}
}

// Notef appends an informational note without changing State.
func (o *Outcome) Notef(format string, args ...any) {
	o.Notes = append(o.Notes, fmt.Sprintf(format, args...))
}

// Degradef appends a note and marks the outcome degraded. A fatal outcome
// stays fatal.
func (o *Outcome) Degradef(format string, args ...any) {
	o.Notef(format, args...)
	if o.State != OutcomeFatal {
		o.State = OutcomeDegraded
	}
}

// Fatal marks the outcome as failed outside the engine's own boundary.
func (o *Outcome) Fatal(err error) {
	o.State = OutcomeFatal
	o.Notes = append(o.Notes, err.Error())
}

// TextReport is the structured text diff: every word- and line-level
// opcode other than equal, as a Difference over token ranges.
type TextReport struct {
	Words   []Difference `json:"words"`
	Lines   []Difference `json:"lines"`
	Outcome Outcome      `json:"outcome"`
}

// SemanticMatch is a sentence of the original whose closest counterpart in
// the modified document is below the similarity threshold.
type SemanticMatch struct {
	OriginalSentence string  `json:"original_sentence"`
	MatchedSentence  string  `json:"matched_sentence"`
	Similarity       float64 `json:"similarity"`
	Note             string  `json:"note"`
}

// SemanticReport is the output of the semantic engine.
type SemanticReport struct {
	Matches []SemanticMatch `json:"matches"`
	Outcome Outcome         `json:"outcome"`
}

// FieldChange records one attribute that differs between the two runs.
type FieldChange struct {
	Before any `json:"before"`
	After  any `json:"after"`
}

// FormattingChange lists the differing attributes of a run present in both
// documents.
type FormattingChange struct {
	Text        string                 `json:"text"`
	Differences map[string]FieldChange `json:"differences"`
}

// FormattingReport is the output of the formatting engine.
type FormattingReport struct {
	Added   []Run              `json:"added"`
	Removed []Run              `json:"removed"`
	Changed []FormattingChange `json:"changed"`
	Outcome Outcome            `json:"outcome"`
}

// PageDetections groups the detections of one page (1-based).
type PageDetections struct {
	Page       int         `json:"page"`
	Detections []Detection `json:"detections"`
}

// PageScore is the structural similarity of one page pair (1-based page).
type PageScore struct {
	Page  int     `json:"page"`
	Score float64 `json:"score"`
}

// VisualReport is the output of the visual engine. AverageScore is nil when
// no page pair could be compared.
type VisualReport struct {
	DetectionsA  []PageDetections `json:"detections_a"`
	DetectionsB  []PageDetections `json:"detections_b"`
	PageScores   []PageScore      `json:"page_scores"`
	AverageScore *float64         `json:"average_score"`
	Outcome      Outcome          `json:"outcome"`
}

// DateReport is the output of the date engine. Dates are ISO-8601 calendar
// dates (2006-01-02), sorted ascending.
type DateReport struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
	Common  []string `json:"common"`
	Outcome Outcome  `json:"outcome"`
}

// Counts summarizes the differences of a Result.
type Counts struct {
	Total         int `json:"total"`
	Additions     int `json:"additions"`
	Deletions     int `json:"deletions"`
	Modifications int `json:"modifications"`
	FormatChanges int `json:"format_changes"`
	VisualChanges int `json:"visual_changes"`
	High          int `json:"high"`
	Medium        int `json:"medium"`
	Low           int `json:"low"`
}

// Result is the final, immutable output of a completed comparison.
type Result struct {
	ComparisonID       string       `json:"comparison_id"`
	OriginalDocumentID string       `json:"original_document_id"`
	ModifiedDocumentID string       `json:"modified_document_id"`
	Timestamp          time.Time    `json:"timestamp"`
	Differences        []Difference `json:"differences"`
	Summary            string       `json:"summary"`
	SimilarityScore    float64      `json:"similarity_score"`

	Counts     Counts           `json:"counts"`
	Text       TextReport       `json:"text"`
	Semantic   SemanticReport   `json:"semantic"`
	Formatting FormattingReport `json:"formatting"`
	Visual     VisualReport     `json:"visual"`
	Dates      DateReport       `json:"dates"`

	Diagnostics []Outcome `json:"diagnostics"`
}
