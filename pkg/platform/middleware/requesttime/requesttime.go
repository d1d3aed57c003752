// Package requesttime fixes the instant a command is evaluated at.
// The middleware reads the clock once per request; every flow decision for that
// request (existence as of now, implicit transfer approval, expiration arithmetic)
// uses the same instant even if wall-clock time advances mid-request.
package requesttime

import (
	"net/http"
	"time"

	"github.com/alangunning/nomulus/pkg/requestcontext"
)

// Clock returns the current instant.
type Clock func() time.Time

// Middleware captures time.Now in UTC at the start of the request.
func Middleware(next http.Handler) http.Handler {
	return New(time.Now)(next)
}

// New builds the middleware around an injected clock, for tests that need to
// pin "now" across a whole HTTP round trip.
func New(clock Clock) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTime(r.Context(), clock().UTC())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
