// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets these values; flows and stores read them. Keeping this package
// free of net/http lets the flow packages depend on it without pulling in transport code.
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithRegistrarID(ctx, "TheRegistrar")
package requestcontext

import (
	"context"
	"time"

	id "github.com/alangunning/nomulus/pkg/domain"
)

type (
	registrarIDKey struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyRegistrarID = registrarIDKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// RegistrarID retrieves the authenticated registrar (EPP clID) from the context.
// Returns the empty id if the request was not authenticated.
func RegistrarID(ctx context.Context) id.RegistrarID {
	if registrarID, ok := ctx.Value(ContextKeyRegistrarID).(id.RegistrarID); ok {
		return registrarID
	}
	return ""
}

// WithRegistrarID injects the authenticated registrar into the context.
func WithRegistrarID(ctx context.Context, registrarID id.RegistrarID) context.Context {
	return context.WithValue(ctx, ContextKeyRegistrarID, registrarID)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (CLI and tests without the middleware chain).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Every decision taken while
// serving one command reads this single instant.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
