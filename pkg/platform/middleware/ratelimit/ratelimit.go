// Package ratelimit throttles commands per registrar with token buckets.
package ratelimit

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/alangunning/nomulus/pkg/epp"
	"github.com/alangunning/nomulus/pkg/requestcontext"
)

// Limiter keeps one token bucket per key and forgets buckets idle past idleTTL.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	rps     rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
}

type entry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithIdleTTL sets how long an unused bucket is kept.
func WithIdleTTL(d time.Duration) Option {
	return func(l *Limiter) { l.idleTTL = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New constructs a Limiter allowing rps sustained requests with the given burst.
func New(rps float64, burst int, opts ...Option) *Limiter {
	l := &Limiter{
		entries: make(map[string]*entry),
		rps:     rate.Limit(rps),
		burst:   burst,
		idleTTL: 15 * time.Minute,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Reserve takes a token for key. It returns false and the wait until the next
// token when the bucket is empty.
func (l *Limiter) Reserve(key string) (bool, time.Duration) {
	now := l.now()

	l.mu.Lock()
	ent, ok := l.entries[key]
	if !ok {
		ent = &entry{lim: rate.NewLimiter(l.rps, l.burst)}
		l.entries[key] = ent
	}
	ent.lastSeen = now
	l.mu.Unlock()

	r := ent.lim.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	delay := r.DelayFrom(now)
	if delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Cleanup drops buckets that have been idle longer than the TTL.
func (l *Limiter) Cleanup() {
	cutoff := l.now().Add(-l.idleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, ent := range l.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(l.entries, key)
		}
	}
}

// Len returns the number of tracked buckets.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Middleware rejects a request once its registrar (or, before authentication,
// its remote address) has exhausted its bucket.
func Middleware(l *Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFor(r)
			allowed, retryAfter := l.Reserve(key)
			if !allowed {
				if logger != nil {
					logger.WarnContext(r.Context(), "rate limit exceeded",
						"key", key,
						"request_id", requestcontext.RequestID(r.Context()),
					)
				}
				seconds := int(math.Ceil(retryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(max(seconds, 1)))
				epp.WriteResult(w, http.StatusTooManyRequests, epp.ResultSessionLimitExceeded, "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func keyFor(r *http.Request) string {
	if registrarID := requestcontext.RegistrarID(r.Context()); !registrarID.IsNil() {
		return "registrar:" + registrarID.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		return "addr:" + r.RemoteAddr
	}
	return "addr:" + host
}
