package shield

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/docdiff/kit"
)

// TraceID assigns a short random trace ID to each request. It is stored in
// the context (kit.WithTraceID), echoed in X-Trace-ID, and attached to a
// per-request logger available through GetLogger. An inbound X-Trace-ID is
// kept so callers can correlate their own logs.
func TraceID(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := r.Header.Get("X-Trace-ID")
			if traceID == "" || len(traceID) > 64 {
				id := make([]byte, 4)
				rand.Read(id)
				traceID = hex.EncodeToString(id)
			}

			ctx := kit.WithTraceID(r.Context(), traceID)
			ctx = kit.WithTransport(ctx, "http")
			w.Header().Set("X-Trace-ID", traceID)

			reqLogger := logger.With(
				"trace_id", traceID,
				"method", r.Method,
				"path", r.URL.Path,
			)
			ctx = context.WithValue(ctx, LoggerKey, reqLogger)
			reqLogger.Debug("request", "remote_addr", r.RemoteAddr)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
