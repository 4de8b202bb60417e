// Package kit holds the transport-neutral plumbing shared by the HTTP and
// MCP surfaces: endpoints, middleware chains and request context values.
package kit

import (
	"context"
	"log/slog"
	"time"
)

// Endpoint is one operation, independent of the transport that invoked it.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware decorates an Endpoint.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares; the first one is the outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// Logged logs each call of op with its duration, transport and request id.
// Failures are logged at warn level.
func Logged(logger *slog.Logger, op string) Middleware {
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			attrs := []any{
				"op", op,
				"transport", GetTransport(ctx),
				"request_id", GetRequestID(ctx),
				"duration", time.Since(start),
			}
			if err != nil {
				logger.Warn("endpoint failed", append(attrs, "error", err)...)
			} else {
				logger.Debug("endpoint served", attrs...)
			}
			return resp, err
		}
	}
}
