// Package datediff compares the calendar dates mentioned in two documents.
//
// Date spans come from an EntityRecognizer (label DATE) and are parsed with
// dateparse, so "3/1/2024" and "March 1, 2024" are the same date. Ambiguous
// numeric dates are read month first.
package datediff

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/hazyhaar/docdiff/capability"
	"github.com/hazyhaar/docdiff/docmodel"
)

// ISOLayout is the canonical rendering of a calendar date.
const ISOLayout = "2006-01-02"

// LabelDate is the entity label the engine keeps.
const LabelDate = "DATE"

// Config tunes the engine.
type Config struct {
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Engine is safe for concurrent use.
type Engine struct {
	cfg        Config
	recognizer capability.EntityRecognizer
}

// New creates an Engine. recognizer may be nil.
func New(cfg Config, recognizer capability.EntityRecognizer) *Engine {
	cfg.defaults()
	return &Engine{cfg: cfg, recognizer: recognizer}
}

var (
	ordinalSuffix = regexp.MustCompile(`(?i)\b(\d{1,2})(st|nd|rd|th)\b`)
	abbrevDot     = regexp.MustCompile(`(?i)\b([a-z]{3,4})\.`)
	ofWord        = regexp.MustCompile(`(?i)\s+of\s+`)
	numericDate   = regexp.MustCompile(`^(\d{1,2})[.-](\d{1,2})[.-](\d{2,4})$`)
	monthFirst    = regexp.MustCompile(`^([A-Za-z]+) (\d{1,2}),? (\d{4})$`)
	dayFirst      = regexp.MustCompile(`^(\d{1,2}) ([A-Za-z]+),? (\d{4})$`)
)

// monthName expands an English month name or abbreviation ("Sept", "Mar").
func monthName(word string) (string, bool) {
	w := strings.ToLower(word)
	if len(w) < 3 {
		return "", false
	}
	for m := time.January; m <= time.December; m++ {
		if full := m.String(); strings.HasPrefix(strings.ToLower(full), w) {
			return full, true
		}
	}
	return "", false
}

// canonical rewrites the spellings the recognizers emit into forms dateparse
// reads: "Month D, YYYY" for textual dates and slashes for numeric ones.
func canonical(s string) string {
	if m := numericDate.FindStringSubmatch(s); m != nil {
		return m[1] + "/" + m[2] + "/" + m[3]
	}
	var word, day, year string
	if m := monthFirst.FindStringSubmatch(s); m != nil {
		word, day, year = m[1], m[2], m[3]
	} else if m := dayFirst.FindStringSubmatch(s); m != nil {
		word, day, year = m[2], m[1], m[3]
	} else {
		return s
	}
	full, ok := monthName(word)
	if !ok {
		return s
	}
	return full + " " + day + ", " + year
}

// Parse reads a date span into a calendar date (UTC midnight).
func Parse(span string) (time.Time, error) {
	s := strings.TrimSpace(span)
	s = strings.TrimSuffix(s, ".")
	s = ordinalSuffix.ReplaceAllString(s, "$1")
	s = abbrevDot.ReplaceAllString(s, "$1")
	s = ofWord.ReplaceAllString(s, " ")
	s = canonical(strings.Join(strings.Fields(s), " "))
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// Dates extracts the set of calendar dates mentioned in text, keyed by ISO
// form. Unparsable spans are reported through out.
func (e *Engine) Dates(ctx context.Context, text, label string, out *docmodel.Outcome) (map[string]struct{}, error) {
	ents, err := e.recognizer.Recognize(ctx, text)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{})
	for _, ent := range ents {
		if ent.Label != LabelDate {
			continue
		}
		d, err := Parse(ent.Text)
		if err != nil {
			out.Notef("%s: skipped unparsable date %q", label, ent.Text)
			continue
		}
		set[d.Format(ISOLayout)] = struct{}{}
	}
	return set, nil
}

// Compare returns the dates added, removed and kept between a and b.
func (e *Engine) Compare(ctx context.Context, a, b string) docmodel.DateReport {
	rep := docmodel.DateReport{
		Added:   []string{},
		Removed: []string{},
		Common:  []string{},
		Outcome: docmodel.NewOutcome("dates"),
	}
	if e.recognizer == nil {
		rep.Outcome.Degradef("entity recognizer unavailable, date comparison skipped")
		return rep
	}

	da, err := e.Dates(ctx, a, "document 1", &rep.Outcome)
	if err != nil {
		e.cfg.Logger.Warn("date extraction failed", "document", 1, "error", err)
		rep.Outcome.Degradef("document 1: entity recognition failed: %v", err)
		return rep
	}
	db, err := e.Dates(ctx, b, "document 2", &rep.Outcome)
	if err != nil {
		e.cfg.Logger.Warn("date extraction failed", "document", 2, "error", err)
		rep.Outcome.Degradef("document 2: entity recognition failed: %v", err)
		return rep
	}

	for d := range db {
		if _, ok := da[d]; ok {
			rep.Common = append(rep.Common, d)
		} else {
			rep.Added = append(rep.Added, d)
		}
	}
	for d := range da {
		if _, ok := db[d]; !ok {
			rep.Removed = append(rep.Removed, d)
		}
	}
	// ISO strings sort chronologically.
	sort.Strings(rep.Added)
	sort.Strings(rep.Removed)
	sort.Strings(rep.Common)
	return rep
}
