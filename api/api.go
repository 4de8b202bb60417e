// Package api exposes the comparison service over HTTP (chi) and MCP.
//
//	POST /api/v1/comparisons              multipart: original, modified
//	GET  /api/v1/comparisons/{id}         status record
//	GET  /api/v1/comparisons/{id}/result  404 unknown, 409 not completed
//	GET  /api/v1/comparisons/{id}/report  HTML rendering of the result
//	GET  /api/v1/formats                  accepted file extensions
//	GET  /healthz, /metrics
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/docdiff/compare"
	"github.com/hazyhaar/docdiff/kit"
	"github.com/hazyhaar/docdiff/metrics"
	"github.com/hazyhaar/docdiff/shield"
)

// Config configures the HTTP surface.
type Config struct {
	// MaxUploadBytes caps a whole comparison upload (both files).
	MaxUploadBytes int64 `json:"max_upload_bytes" yaml:"max_upload_bytes"`
	// MaxMemoryBytes is the multipart memory budget; larger parts spill to
	// temporary files. Default: 32 MB.
	MaxMemoryBytes int64 `json:"max_memory_bytes" yaml:"max_memory_bytes"`
	// FilesRoot confines the paths MCP clients may name. Empty allows any
	// path readable by the process.
	FilesRoot string `json:"-" yaml:"-"`
	// RateLimits keyed by "METHOD /path".
	RateLimits map[string]shield.Limit `json:"rate_limits" yaml:"rate_limits"`

	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 2*100<<20 + 1<<20
	}
	if c.MaxMemoryBytes <= 0 {
		c.MaxMemoryBytes = 32 << 20
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Server binds a comparison Service to its transports.
type Server struct {
	cfg    Config
	svc    *compare.Service
	logger *slog.Logger
}

// New creates a Server. svc must have been built with an extractor for
// uploads to be accepted.
func New(cfg Config, svc *compare.Service) *Server {
	cfg.defaults()
	return &Server{cfg: cfg, svc: svc, logger: cfg.Logger}
}

// Handler returns the HTTP router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestContext)
	r.Use(middleware.Recoverer)
	for _, mw := range shield.Stack(shield.Config{
		MaxUploadBytes: s.cfg.MaxUploadBytes,
		RateLimits:     s.cfg.RateLimits,
		Logger:         s.logger,
	}) {
		r.Use(mw)
	}
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/formats", s.handleFormats)
		r.Post("/comparisons", s.handleCreate)
		r.Route("/comparisons/{id}", func(r chi.Router) {
			r.Get("/", s.handleStatus)
			r.Get("/result", s.handleResult)
			r.Get("/report", s.handleReport)
		})
	})
	return r
}

// requestContext copies chi's request id into the kit context so endpoint
// logs carry it on both transports.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := middleware.GetReqID(r.Context())
		if id != "" {
			w.Header().Set("X-Request-ID", id)
			r = r.WithContext(kit.WithRequestID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}
