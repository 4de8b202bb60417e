package capability

import (
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/docdiff/metrics"
)

// Circuit states, as reported by Circuits and the
// docdiff_capability_circuit_state gauge.
const (
	CircuitClosed   = "closed"
	CircuitHalfOpen = "half_open"
	CircuitOpen     = "open"
)

// circuit stops calling one capability after threshold consecutive
// failures. Once reset has elapsed a single trial call goes through and its
// outcome closes or reopens the circuit.
type circuit struct {
	name      string
	threshold int
	reset     time.Duration
	now       func() time.Time
	logger    *slog.Logger

	mu       sync.Mutex
	state    string
	failures int
	openedAt time.Time
	trial    bool
}

func newCircuit(name string, cfg GuardConfig) *circuit {
	c := &circuit{
		name:      name,
		threshold: cfg.BreakerThreshold,
		reset:     cfg.BreakerReset,
		now:       time.Now,
		logger:    cfg.Logger,
		state:     CircuitClosed,
	}
	metrics.SetCircuitState(name, CircuitClosed)
	return c
}

// admit reports whether a call may reach the backend.
func (c *circuit) admit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case CircuitOpen:
		if c.now().Sub(c.openedAt) < c.reset {
			return false
		}
		c.move(CircuitHalfOpen)
		c.trial = true
		return true
	case CircuitHalfOpen:
		if c.trial {
			return false
		}
		c.trial = true
		return true
	}
	return true
}

// record feeds the outcome of an admitted call back into the circuit.
func (c *circuit) record(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trial = false
	if err == nil {
		c.failures = 0
		c.move(CircuitClosed)
		return
	}
	c.failures++
	if c.state == CircuitHalfOpen || c.failures >= c.threshold {
		c.openedAt = c.now()
		c.move(CircuitOpen)
	}
}

func (c *circuit) current() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// must hold mu
func (c *circuit) move(to string) {
	if c.state == to {
		return
	}
	from := c.state
	c.state = to
	metrics.SetCircuitState(c.name, to)
	log := c.logger.With("capability", c.name, "from", from, "to", to, "failures", c.failures)
	if to == CircuitOpen {
		log.Warn("capability circuit opened", "retry_after", c.reset)
		return
	}
	log.Info("capability circuit changed")
}
