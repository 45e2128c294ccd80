// CLAUDE:SUMMARY Transport-neutral Endpoint type, Middleware chaining and the request logging middleware shared by HTTP and MCP.
// CLAUDE:EXPORTS Endpoint, Middleware, Chain, Caller, Logging
package kit

import (
	"context"
	"log/slog"
	"time"
)

// Endpoint is one business operation, independent of the transport carrying it.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares; the first one is the outermost.
func Chain(outer Middleware, others ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(others) - 1; i >= 0; i-- {
			next = others[i](next)
		}
		return outer(next)
	}
}

// Caller puts the user id that id extracts from the request into the
// context. It must wrap Logging for the id to be logged.
func Caller(id func(req any) string) Middleware {
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			if v := id(req); v != "" {
				ctx = WithUserID(ctx, v)
			}
			return next(ctx, req)
		}
	}
}

// Logging logs every call of the endpoint named op with its transport,
// request id, user id when known and duration. Failures are logged at Warn.
func Logging(logger *slog.Logger, op string) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			attrs := []any{
				"op", op,
				"transport", GetTransport(ctx),
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if id := GetRequestID(ctx); id != "" {
				attrs = append(attrs, "request_id", id)
			}
			if id := GetUserID(ctx); id != "" {
				attrs = append(attrs, "user_id", id)
			}
			if err != nil {
				logger.Warn("endpoint failed", append(attrs, "error", err)...)
				return resp, err
			}
			logger.Debug("endpoint done", attrs...)
			return resp, nil
		}
	}
}
