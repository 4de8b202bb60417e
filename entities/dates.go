// Package entities provides EntityRecognizer implementations: a built-in
// pattern recognizer for date expressions and an HTTP client for an external
// NER service.
package entities

import (
	"context"
	"regexp"

	"github.com/hazyhaar/docdiff/docmodel"
)

const month = `(?:Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|June?|July?|Aug(?:ust)?|Sep(?:t(?:ember)?)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)`

// Alternatives are ordered longest form first so one span is never split.
var datePattern = regexp.MustCompile(`(?i)\b(?:` +
	`\d{4}-\d{2}-\d{2}` + // 2024-03-01
	`|` + month + `\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}` + // March 1, 2024
	`|\d{1,2}(?:st|nd|rd|th)?\s+(?:of\s+)?` + month + `\.?,?\s+\d{4}` + // 1st of March 2024
	`|\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4}` + // 3/1/2024
	`)\b`)

// DateRecognizer finds date expressions with regular expressions. It needs
// no model and is the default recognizer.
type DateRecognizer struct{}

// NewDateRecognizer returns the pattern recognizer.
func NewDateRecognizer() *DateRecognizer { return &DateRecognizer{} }

// Recognize returns every date-like span labelled DATE, in text order.
func (DateRecognizer) Recognize(ctx context.Context, text string) ([]docmodel.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []docmodel.Entity
	for _, loc := range datePattern.FindAllStringIndex(text, -1) {
		out = append(out, docmodel.Entity{
			Label: "DATE",
			Text:  text[loc[0]:loc[1]],
			Start: loc[0],
			End:   loc[1],
		})
	}
	return out, nil
}
