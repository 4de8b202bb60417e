// Package metrics exposes the Prometheus collectors of the comparison
// service. Collectors are package-level and registered on the default
// registry at init.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	subsystem = "docdiff"

	statusLabel     = "status"
	stageLabel      = "stage"
	capabilityLabel = "capability"
	reasonLabel     = "reason"
	outcomeLabel    = "outcome"
)

var jobsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "jobs_total",
		Help:      "number of comparison jobs by terminal status",
	},
	[]string{statusLabel},
)

var jobsInFlightMetric = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Subsystem: subsystem,
		Name:      "jobs_in_flight",
		Help:      "number of comparison jobs currently processing",
	},
)

var stageDurationMetric = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Subsystem: subsystem,
		Name:      "stage_duration_seconds",
		Help:      "time spent in each pipeline stage",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
	},
	[]string{stageLabel, outcomeLabel},
)

var capabilityDurationMetric = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Subsystem: subsystem,
		Name:      "capability_duration_seconds",
		Help:      "latency of calls into external capabilities",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{capabilityLabel},
)

var capabilityFailuresMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "capability_failures_total",
		Help:      "failed capability calls by reason (error, timeout, circuit_open)",
	},
	[]string{capabilityLabel, reasonLabel},
)

var capabilityCircuitMetric = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Subsystem: subsystem,
		Name:      "capability_circuit_state",
		Help:      "circuit state per capability (0 closed, 1 half_open, 2 open)",
	},
	[]string{capabilityLabel},
)

var mcpSessionsMetric = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Subsystem: subsystem,
		Name:      "mcp_quic_sessions",
		Help:      "number of open MCP sessions on the QUIC listener",
	},
)

// JobStarted increments the in-flight gauge.
func JobStarted() { jobsInFlightMetric.Inc() }

// JobFinished records a terminal status and decrements the in-flight gauge.
func JobFinished(status string) {
	jobsInFlightMetric.Dec()
	jobsTotalMetric.With(prometheus.Labels{statusLabel: status}).Inc()
}

// ObserveStage records the duration of one engine run.
func ObserveStage(stage, outcome string, d time.Duration) {
	stageDurationMetric.With(prometheus.Labels{stageLabel: stage, outcomeLabel: outcome}).Observe(d.Seconds())
}

// ObserveCapability records the latency of one capability call.
func ObserveCapability(name string, d time.Duration) {
	capabilityDurationMetric.With(prometheus.Labels{capabilityLabel: name}).Observe(d.Seconds())
}

// CapabilityFailure counts a failed capability call.
func CapabilityFailure(name, reason string) {
	capabilityFailuresMetric.With(prometheus.Labels{capabilityLabel: name, reasonLabel: reason}).Inc()
}

// SetCircuitState exports the circuit state of a capability. Unknown
// states read as closed.
func SetCircuitState(name, state string) {
	v := 0.0
	switch state {
	case "half_open":
		v = 1
	case "open":
		v = 2
	}
	capabilityCircuitMetric.With(prometheus.Labels{capabilityLabel: name}).Set(v)
}

// SessionOpened and SessionClosed track MCP sessions on the QUIC listener.
func SessionOpened() { mcpSessionsMetric.Inc() }
func SessionClosed() { mcpSessionsMetric.Dec() }

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(jobsTotalMetric)
	prometheus.MustRegister(jobsInFlightMetric)
	prometheus.MustRegister(stageDurationMetric)
	prometheus.MustRegister(capabilityDurationMetric)
	prometheus.MustRegister(capabilityFailuresMetric)
	prometheus.MustRegister(capabilityCircuitMetric)
	prometheus.MustRegister(mcpSessionsMetric)
	prometheus.MustRegister(requestsMetric)
	prometheus.MustRegister(latencyMetric)
}
