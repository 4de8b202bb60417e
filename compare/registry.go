package compare

import (
	"fmt"
	"sync"
	"time"

	"github.com/hazyhaar/docdiff/docmodel"
)

type entry struct {
	job    docmodel.Job
	result *docmodel.Result
}

// registry is the job table. Status records only move forward: a lower
// progress or a transition out of a terminal state is refused.
type registry struct {
	mu        sync.RWMutex
	jobs      map[string]*entry
	retention time.Duration
	now       func() time.Time
}

func newRegistry(retention time.Duration, now func() time.Time) *registry {
	return &registry{jobs: make(map[string]*entry), retention: retention, now: now}
}

func (r *registry) create(id string) docmodel.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictLocked()

	now := r.now()
	e := &entry{job: docmodel.Job{
		ID:        id,
		Status:    docmodel.StatusQueued,
		Progress:  0,
		Message:   "Comparison queued",
		CreatedAt: now,
		UpdatedAt: now,
	}}
	r.jobs[id] = e
	return e.job
}

// advance moves a job to status with the given progress and message.
func (r *registry) advance(id string, status docmodel.Status, progress float64, msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if !e.job.Status.CanTransition(status) {
		return fmt.Errorf("job %s: %s -> %s: %w", id, e.job.Status, status, errTransition)
	}
	if progress < e.job.Progress {
		return fmt.Errorf("job %s: progress %.2f < %.2f: %w", id, progress, e.job.Progress, errTransition)
	}
	e.job.Status = status
	e.job.Progress = progress
	e.job.Message = msg
	e.job.UpdatedAt = r.now()
	return nil
}

// complete stores the result and marks the job completed in one step so a
// reader never sees a completed job without its result.
func (r *registry) complete(id string, res *docmodel.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if !e.job.Status.CanTransition(docmodel.StatusCompleted) {
		return fmt.Errorf("job %s: %s -> completed: %w", id, e.job.Status, errTransition)
	}
	e.result = res
	e.job.Status = docmodel.StatusCompleted
	e.job.Progress = 1
	e.job.Message = "Comparison completed successfully"
	e.job.UpdatedAt = r.now()
	return nil
}

// fail marks the job failed, keeping its last progress.
func (r *registry) fail(id, msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if !e.job.Status.CanTransition(docmodel.StatusFailed) {
		return fmt.Errorf("job %s: %s -> failed: %w", id, e.job.Status, errTransition)
	}
	e.job.Status = docmodel.StatusFailed
	e.job.Message = msg
	e.job.UpdatedAt = r.now()
	return nil
}

func (r *registry) get(id string) (entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.jobs[id]
	if !ok {
		return entry{}, false
	}
	return *e, true
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// evictLocked drops terminal jobs idle for longer than the retention window.
func (r *registry) evictLocked() int {
	if r.retention <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.retention)
	n := 0
	for id, e := range r.jobs {
		if e.job.Status.Terminal() && e.job.UpdatedAt.Before(cutoff) {
			delete(r.jobs, id)
			n++
		}
	}
	return n
}
