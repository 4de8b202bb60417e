package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestJobCounters(t *testing.T) {
	before := testutil.ToFloat64(jobsTotalMetric.WithLabelValues("completed"))
	JobStarted()
	JobFinished("completed")
	if got := testutil.ToFloat64(jobsTotalMetric.WithLabelValues("completed")); got != before+1 {
		t.Fatalf("jobs_total{completed}: got %v, want %v", got, before+1)
	}
}

func TestCapabilityFailure(t *testing.T) {
	CapabilityFailure("detector", "timeout")
	if got := testutil.ToFloat64(capabilityFailuresMetric.WithLabelValues("detector", "timeout")); got < 1 {
		t.Fatalf("capability_failures_total: got %v", got)
	}
	ObserveCapability("detector", 10*time.Millisecond)
	ObserveStage("visual", "ok", time.Second)
}

func TestSetCircuitState(t *testing.T) {
	for _, tc := range []struct {
		state string
		want  float64
	}{
		{"open", 2},
		{"half_open", 1},
		{"closed", 0},
		{"bogus", 0},
	} {
		SetCircuitState("embedder", tc.state)
		if got := testutil.ToFloat64(capabilityCircuitMetric.WithLabelValues("embedder")); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.state, got, tc.want)
		}
	}
}

func TestMCPSessions(t *testing.T) {
	before := testutil.ToFloat64(mcpSessionsMetric)
	SessionOpened()
	if got := testutil.ToFloat64(mcpSessionsMetric); got != before+1 {
		t.Fatalf("after open: got %v, want %v", got, before+1)
	}
	SessionClosed()
	if got := testutil.ToFloat64(mcpSessionsMetric); got != before {
		t.Fatalf("after close: got %v, want %v", got, before)
	}
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, id := range []string{"a", "b"} {
		req := httptest.NewRequest(http.MethodGet, "/items/"+id, nil)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	if got := testutil.ToFloat64(requestsMetric.WithLabelValues("418", "GET", "/items/{id}")); got != 2 {
		t.Fatalf("requests for pattern: got %v, want 2", got)
	}
}

func TestHandler_Exposes(t *testing.T) {
	JobStarted()
	JobFinished("failed")
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "docdiff_jobs_total") {
		t.Fatal("docdiff_jobs_total not exposed")
	}
}
