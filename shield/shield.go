// Package shield holds the HTTP middleware shared by the docdiff API:
// security headers, upload body limits, request tracing and per-client
// rate limiting.
//
//	r := chi.NewRouter()
//	for _, mw := range shield.Stack(shield.Config{}) {
//	    r.Use(mw)
//	}
package shield

import (
	"context"
	"log/slog"
	"net/http"
)

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// Config configures Stack. Zero values pick the defaults.
type Config struct {
	Headers        HeaderConfig     `json:"-" yaml:"-"`
	MaxUploadBytes int64            `json:"max_upload_bytes" yaml:"max_upload_bytes"`
	RateLimits     map[string]Limit `json:"rate_limits" yaml:"rate_limits"`
	Logger         *slog.Logger     `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.Headers == (HeaderConfig{}) {
		c.Headers = DefaultHeaders()
	}
	if c.MaxUploadBytes <= 0 {
		// Two documents plus multipart framing.
		c.MaxUploadBytes = 2*100<<20 + 1<<20
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Stack returns the middleware chain in the order it must be installed:
// HeadToGet, SecurityHeaders, MaxBody, TraceID, then the rate limiter when
// any limit is configured.
func Stack(cfg Config) []func(http.Handler) http.Handler {
	cfg.defaults()
	stack := []func(http.Handler) http.Handler{
		HeadToGet,
		SecurityHeaders(cfg.Headers),
		MaxBody(cfg.MaxUploadBytes),
		TraceID(cfg.Logger),
	}
	if len(cfg.RateLimits) > 0 {
		stack = append(stack, NewRateLimiter(cfg.RateLimits, cfg.Logger, "/healthz", "/metrics").Middleware)
	}
	return stack
}

// GetLogger retrieves the per-request logger from the context.
// Returns slog.Default() if no logger was set.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
