package capability

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/hazyhaar/docdiff/docmodel"
	"github.com/hazyhaar/docdiff/metrics"
	"github.com/hazyhaar/docdiff/ocr"
)

// ErrTimeout is wrapped by calls that exceeded GuardConfig.Timeout.
var ErrTimeout = errors.New("capability call timed out")

// ErrCircuitOpen is returned without calling the backend while its breaker
// is open.
type ErrCircuitOpen struct {
	Capability string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("capability %s: circuit open", e.Capability)
}

// ErrPanic wraps a panic raised inside a capability.
type ErrPanic struct {
	Capability string
	Value      any
}

func (e *ErrPanic) Error() string {
	return fmt.Sprintf("capability %s: panic: %v", e.Capability, e.Value)
}

// GuardConfig bounds every capability call.
type GuardConfig struct {
	// Timeout per call. Default: 30s.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// BreakerThreshold is the consecutive failure count that opens a
	// capability's breaker. Default: 5.
	BreakerThreshold int `json:"breaker_threshold" yaml:"breaker_threshold"`

	// BreakerReset is how long an open breaker rejects calls. Default: 30s.
	BreakerReset time.Duration `json:"breaker_reset" yaml:"breaker_reset"`

	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *GuardConfig) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.BreakerThreshold <= 0 {
		c.BreakerThreshold = 5
	}
	if c.BreakerReset <= 0 {
		c.BreakerReset = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

type guard struct {
	name    string
	timeout time.Duration
	circuit *circuit
	logger  *slog.Logger
}

func newGuard(name string, cfg GuardConfig) *guard {
	return &guard{
		name:    name,
		timeout: cfg.Timeout,
		circuit: newCircuit(name, cfg),
		logger:  cfg.Logger,
	}
}

func (g *guard) guardOf() *guard { return g }

// call runs fn in its own goroutine so a backend that ignores ctx (cgo OCR,
// a stuck socket) still releases the caller at the deadline. The goroutine
// itself keeps running until fn returns.
func call[T any](ctx context.Context, g *guard, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if !g.circuit.admit() {
		metrics.CapabilityFailure(g.name, "circuit_open")
		return zero, &ErrCircuitOpen{Capability: g.name}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	start := time.Now()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				g.logger.Error("capability panic recovered",
					"capability", g.name, "panic", r, "stack", string(debug.Stack()))
				ch <- result{err: &ErrPanic{Capability: g.name, Value: r}}
			}
		}()
		v, err := fn(ctx)
		ch <- result{v: v, err: err}
	}()

	select {
	case r := <-ch:
		metrics.ObserveCapability(g.name, time.Since(start))
		g.circuit.record(r.err)
		if r.err != nil {
			metrics.CapabilityFailure(g.name, "error")
			return zero, fmt.Errorf("%s: %w", g.name, r.err)
		}
		return r.v, nil
	case <-ctx.Done():
		g.circuit.record(ctx.Err())
		metrics.CapabilityFailure(g.name, "timeout")
		g.logger.Warn("capability call abandoned", "capability", g.name, "timeout", g.timeout, "error", ctx.Err())
		return zero, fmt.Errorf("%s: %w: %w", g.name, ErrTimeout, ctx.Err())
	}
}

// Guard wraps every configured capability of s with a timeout and a circuit
// breaker. Nil capabilities stay nil.
func Guard(s Set, cfg GuardConfig) Set {
	cfg.defaults()
	out := Set{}
	if s.Embedder != nil {
		out.Embedder = &guardedEmbedder{next: s.Embedder, guard: newGuard("embedder", cfg)}
	}
	if s.Detector != nil {
		out.Detector = &guardedDetector{next: s.Detector, guard: newGuard("detector", cfg)}
	}
	if s.Entities != nil {
		out.Entities = &guardedEntities{next: s.Entities, guard: newGuard("entities", cfg)}
	}
	if s.OCR != nil {
		out.OCR = &guardedOCR{next: s.OCR, guard: newGuard("ocr", cfg)}
	}
	return out
}

// Circuits returns the circuit state of every guarded capability of s,
// keyed by capability name. Capabilities not built by Guard are omitted.
func Circuits(s Set) map[string]string {
	out := map[string]string{}
	for _, c := range []any{s.Embedder, s.Detector, s.Entities, s.OCR} {
		if h, ok := c.(interface{ guardOf() *guard }); ok {
			g := h.guardOf()
			out[g.name] = g.circuit.current()
		}
	}
	return out
}

type guardedEmbedder struct {
	next Embedder
	*guard
}

func (e *guardedEmbedder) Model() string { return e.next.Model() }

func (e *guardedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return call(ctx, e.guard, func(ctx context.Context) ([][]float32, error) {
		return e.next.EmbedBatch(ctx, texts)
	})
}

type guardedDetector struct {
	next Detector
	*guard
}

func (d *guardedDetector) Detect(ctx context.Context, img image.Image) ([]docmodel.Detection, error) {
	return call(ctx, d.guard, func(ctx context.Context) ([]docmodel.Detection, error) {
		return d.next.Detect(ctx, img)
	})
}

type guardedEntities struct {
	next EntityRecognizer
	*guard
}

func (r *guardedEntities) Recognize(ctx context.Context, text string) ([]docmodel.Entity, error) {
	return call(ctx, r.guard, func(ctx context.Context) ([]docmodel.Entity, error) {
		return r.next.Recognize(ctx, text)
	})
}

type guardedOCR struct {
	next ocr.Engine
	*guard
}

func (o *guardedOCR) Name() string { return o.next.Name() }

func (o *guardedOCR) Recognize(ctx context.Context, img image.Image) (ocr.Result, error) {
	return call(ctx, o.guard, func(ctx context.Context) (ocr.Result, error) {
		return o.next.Recognize(ctx, img)
	})
}
