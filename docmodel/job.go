package docmodel

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a comparison job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// ParseStatus accepts exactly the four lifecycle values.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusQueued, StatusProcessing, StatusCompleted, StatusFailed:
		return st, nil
	}
	return "", fmt.Errorf("invalid status %q", s)
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// rank orders statuses along the lifecycle.
func (s Status) rank() int {
	switch s {
	case StatusQueued:
		return 0
	case StatusProcessing:
		return 1
	case StatusCompleted, StatusFailed:
		return 2
	}
	return -1
}

// CanTransition reports whether a job may move from s to next. Staying in
// processing is allowed (progress updates); leaving a terminal state is not.
func (s Status) CanTransition(next Status) bool {
	if s.Terminal() || next.rank() < 0 {
		return false
	}
	if s == next {
		return s == StatusProcessing
	}
	return next.rank() > s.rank()
}

// Job is the status record of one comparison. Its JSON form is the stable
// wire shape {comparison_id, status, progress, message}.
type Job struct {
	ID       string  `json:"comparison_id"`
	Status   Status  `json:"status"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}
