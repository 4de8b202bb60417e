package docmodel

import (
	"encoding/json"
	"testing"
)

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"queued", "processing", "completed", "failed"} {
		if _, err := ParseStatus(s); err != nil {
			t.Errorf("ParseStatus(%q): %v", s, err)
		}
	}
	for _, s := range []string{"", "done", "Queued", "cancelled"} {
		if _, err := ParseStatus(s); err == nil {
			t.Errorf("ParseStatus(%q): expected error", s)
		}
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusQueued, StatusProcessing, true},
		{StatusQueued, StatusFailed, true},
		{StatusProcessing, StatusProcessing, true},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusQueued, false},
		{StatusQueued, StatusQueued, false},
		{StatusCompleted, StatusProcessing, false},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusCompleted, false},
		{StatusProcessing, Status("bogus"), false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.ok {
			t.Errorf("%s -> %s: got %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}
}

func TestJobWireShape(t *testing.T) {
	data, err := json.Marshal(Job{ID: "abc", Status: StatusQueued, Progress: 0, Message: "Comparison queued"})
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if len(m) != 4 {
		t.Fatalf("expected 4 keys, got %v", m)
	}
	for _, k := range []string{"comparison_id", "status", "progress", "message"} {
		if _, ok := m[k]; !ok {
			t.Errorf("missing key %q", k)
		}
	}
}

func TestOutcomeDegrade(t *testing.T) {
	o := NewOutcome("visual")
	o.Notef("Document 1 has %d page(s)", 2)
	if o.State != OutcomeOK {
		t.Fatalf("note must not degrade, got %s", o.State)
	}
	o.Degradef("detector failed")
	if o.State != OutcomeDegraded || len(o.Notes) != 2 {
		t.Fatalf("got %+v", o)
	}
}

func TestImportanceValid(t *testing.T) {
	if Importance("").Valid() || Importance("critical").Valid() {
		t.Fatal("unexpected valid importance")
	}
	if !ImportanceHigh.Valid() {
		t.Fatal("high must be valid")
	}
}
