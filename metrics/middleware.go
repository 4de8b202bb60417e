package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var requestsMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "http_requests_total",
		Help:      "number of HTTP requests partitioned by status code, method and route pattern",
	},
	[]string{"code", "method", "path"},
)

var latencyMetric = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Subsystem: subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "time spent on the request partitioned by status code, method and route pattern",
		Buckets:   []float64{5, 25, 100, 300, 1000, 5000},
	},
	[]string{"code", "method", "path"},
)

// Middleware records request count and latency per chi route pattern, so
// /comparisons/{id} is one series rather than one per job.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				path = p
			}
		}
		code := strconv.Itoa(ww.Status())
		requestsMetric.WithLabelValues(code, r.Method, path).Inc()
		latencyMetric.WithLabelValues(code, r.Method, path).Observe(float64(time.Since(start).Milliseconds()))
	})
}
