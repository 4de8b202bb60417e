// Package compare runs comparison jobs: it owns the job registry, schedules
// the diff engines for each pair of documents and aggregates their reports.
//
// A job moves queued -> processing -> completed|failed. Engine failures are
// contained in the engine's Outcome; only a missing document or an error or
// panic escaping an engine fails the job.
package compare

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/docdiff/capability"
	"github.com/hazyhaar/docdiff/datediff"
	"github.com/hazyhaar/docdiff/docmodel"
	"github.com/hazyhaar/docdiff/fmtdiff"
	"github.com/hazyhaar/docdiff/idgen"
	"github.com/hazyhaar/docdiff/kit"
	"github.com/hazyhaar/docdiff/scorer"
	"github.com/hazyhaar/docdiff/semdiff"
	"github.com/hazyhaar/docdiff/textdiff"
	"github.com/hazyhaar/docdiff/visualdiff"
)

var (
	// ErrNotFound is returned for an unknown comparison id.
	ErrNotFound = errors.New("comparison not found")
	// ErrNotReady is returned by Result while the job is not completed,
	// and for failed jobs.
	ErrNotReady = errors.New("comparison result not ready")
	// ErrClosed is returned by Submit and Run after Close.
	ErrClosed = errors.New("comparison service closed")
	// ErrMissingDocument fails a job when either side is absent.
	ErrMissingDocument = errors.New("one or both documents not found")
	// ErrNoExtractor is returned when raw sources are submitted to a
	// Service built without an extractor.
	ErrNoExtractor = errors.New("no extractor configured")

	errTransition = errors.New("invalid status transition")
)

const waitInterval = 50 * time.Millisecond

// Config configures the Service and the engines it builds.
type Config struct {
	// Workers bounds concurrently running jobs. Default: 4.
	Workers int `json:"workers" yaml:"workers"`
	// Retention evicts terminal jobs idle for longer. Zero keeps them forever.
	Retention time.Duration `json:"retention" yaml:"retention"`

	Text       textdiff.Config   `json:"text" yaml:"text"`
	Semantic   semdiff.Config    `json:"semantic" yaml:"semantic"`
	Formatting fmtdiff.Config    `json:"formatting" yaml:"formatting"`
	Visual     visualdiff.Config `json:"visual" yaml:"visual"`
	Dates      datediff.Config   `json:"dates" yaml:"dates"`
	Scorer     scorer.Config     `json:"scorer" yaml:"scorer"`

	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Semantic.Logger == nil {
		c.Semantic.Logger = c.Logger
	}
	if c.Formatting.Logger == nil {
		c.Formatting.Logger = c.Logger
	}
	if c.Visual.Logger == nil {
		c.Visual.Logger = c.Logger
	}
	if c.Dates.Logger == nil {
		c.Dates.Logger = c.Logger
	}
	if c.Scorer.Logger == nil {
		c.Scorer.Logger = c.Logger
	}
}

// Source is a raw input file, extracted inside the job.
type Source struct {
	Name string
	Data []byte
}

// Option configures a Service.
type Option func(*Service)

// WithExtractor enables SubmitSources.
func WithExtractor(x capability.Extractor) Option {
	return func(s *Service) { s.extractor = x }
}

// WithIDGenerator replaces the UUIDv7 job id generator.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(s *Service) { s.newID = gen }
}

// WithClock replaces time.Now for timestamps and retention.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithStatusHook registers fn to receive every status record the job table
// accepts, in order, including the initial queued record.
func WithStatusHook(fn func(docmodel.Job)) Option {
	return func(s *Service) { s.hook = fn }
}

// Service runs comparisons. Capabilities are shared read-only by all jobs.
type Service struct {
	cfg       Config
	caps      capability.Set
	extractor capability.Extractor
	newID     idgen.Generator
	now       func() time.Time
	hook      func(docmodel.Job)

	text   *textdiff.Engine
	sem    *semdiff.Engine
	format *fmtdiff.Engine
	visual *visualdiff.Engine
	dates  *datediff.Engine
	scorer *scorer.Scorer

	reg *registry

	pool   errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	closed  bool
	pending sync.WaitGroup
}

// New builds a Service. Engines are created once here from caps; a nil
// capability makes the dependent engine degrade, never fail.
func New(cfg Config, caps capability.Set, opts ...Option) (*Service, error) {
	cfg.defaults()

	sem, err := semdiff.New(cfg.Semantic, caps.Embedder)
	if err != nil {
		return nil, fmt.Errorf("compare: semantic engine: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		cfg:    cfg,
		caps:   caps,
		newID:  idgen.Default,
		now:    time.Now,
		text:   textdiff.New(cfg.Text),
		sem:    sem,
		format: fmtdiff.New(cfg.Formatting, caps.OCR),
		visual: visualdiff.New(cfg.Visual, caps.Detector),
		dates:  datediff.New(cfg.Dates, caps.Entities),
		scorer: scorer.New(cfg.Scorer, caps.Embedder),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, o := range opts {
		o(s)
	}
	s.reg = newRegistry(cfg.Retention, s.now)
	s.pool.SetLimit(cfg.Workers)

	cfg.Logger.Info("comparison service ready", "workers", cfg.Workers,
		"capabilities", caps.Names(), "visual", s.visual.String())
	return s, nil
}

// Submit queues a comparison of two extracted documents and returns its id
// immediately. A nil document fails the job, not the call.
//
// The job runs on the service context and outlives ctx. ctx is checked
// before the job is created and its request id tags the queued log line.
func (s *Service) Submit(ctx context.Context, a, b *docmodel.Document) (string, error) {
	return s.submit(ctx, jobInput{docs: [2]*docmodel.Document{a, b}})
}

// SubmitSources queues a comparison of two raw files. Extraction happens
// inside the job. A nil source fails the job.
func (s *Service) SubmitSources(ctx context.Context, a, b *Source) (string, error) {
	if s.extractor == nil {
		return "", ErrNoExtractor
	}
	return s.submit(ctx, jobInput{srcs: [2]*Source{a, b}})
}

// Run compares synchronously on the caller's goroutine and returns the job
// id once the job is terminal.
func (s *Service) Run(ctx context.Context, a, b *docmodel.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("run: %w", err)
	}
	if err := s.acquire(); err != nil {
		return "", err
	}
	defer s.pending.Done()
	id := s.create()
	s.execute(ctx, id, jobInput{docs: [2]*docmodel.Document{a, b}})
	return id, nil
}

func (s *Service) submit(ctx context.Context, in jobInput) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("submit: %w", err)
	}
	if err := s.acquire(); err != nil {
		return "", err
	}
	id := s.create()
	s.cfg.Logger.Info("comparison queued", "job_id", id,
		"transport", kit.GetTransport(ctx), "request_id", kit.GetRequestID(ctx))
	go func() {
		defer s.pending.Done()
		s.pool.Go(func() error {
			s.execute(s.ctx, id, in)
			return nil
		})
	}()
	return id, nil
}

func (s *Service) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.pending.Add(1)
	return nil
}

func (s *Service) create() string {
	job := s.reg.create(s.newID())
	s.notify(job.ID)
	return job.ID
}

// Status returns the current status record.
func (s *Service) Status(id string) (docmodel.Job, error) {
	e, ok := s.reg.get(id)
	if !ok {
		return docmodel.Job{}, ErrNotFound
	}
	return e.job, nil
}

// Result returns the result of a completed job.
func (s *Service) Result(id string) (*docmodel.Result, error) {
	e, ok := s.reg.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	switch e.job.Status {
	case docmodel.StatusCompleted:
		return e.result, nil
	case docmodel.StatusFailed:
		return nil, fmt.Errorf("%w: %s", ErrNotReady, e.job.Message)
	}
	return nil, ErrNotReady
}

// Jobs returns the number of jobs currently held by the registry.
func (s *Service) Jobs() int { return s.reg.len() }

// Circuits reports the circuit state of each guarded capability.
func (s *Service) Circuits() map[string]string { return capability.Circuits(s.caps) }

// Wait polls until the job is terminal or ctx is done, and returns the last
// status seen.
func (s *Service) Wait(ctx context.Context, id string) (docmodel.Job, error) {
	ticker := time.NewTicker(waitInterval)
	defer ticker.Stop()
	for {
		job, err := s.Status(id)
		if err != nil || job.Status.Terminal() {
			return job, err
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close stops accepting jobs and waits for in-flight ones. If ctx expires
// first, running jobs are cancelled and ctx's error is returned.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		_ = s.pool.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}

func (s *Service) notify(id string) {
	if s.hook == nil {
		return
	}
	if e, ok := s.reg.get(id); ok {
		s.hook(e.job)
	}
}

// step advances a processing job. A refused transition is logged: it can
// only happen if the job was already failed.
func (s *Service) step(id string, progress float64, msg string) {
	if err := s.reg.advance(id, docmodel.StatusProcessing, progress, msg); err != nil {
		s.cfg.Logger.Warn("status update refused", "job_id", id, "error", err)
		return
	}
	s.notify(id)
}
