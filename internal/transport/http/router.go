package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/alangunning/nomulus/internal/platform/metrics"
	"github.com/alangunning/nomulus/pkg/platform/httputil"
	"github.com/alangunning/nomulus/pkg/platform/middleware/admin"
	"github.com/alangunning/nomulus/pkg/platform/middleware/auth"
	"github.com/alangunning/nomulus/pkg/platform/middleware/metadata"
	"github.com/alangunning/nomulus/pkg/platform/middleware/ratelimit"
	"github.com/alangunning/nomulus/pkg/platform/middleware/request"
	"github.com/alangunning/nomulus/pkg/platform/middleware/requesttime"
)

// HealthChecker is a backing service /health pings.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Registrar mounts a module's routes.
type Registrar interface {
	Register(r chi.Router)
}

// Dependencies are the cross-cutting pieces the router wires around every
// module. Limiter, Metrics and Clock are optional. A non-empty AdminToken
// guards /metrics.
type Dependencies struct {
	Logger     *slog.Logger
	Tokens     auth.TokenValidator
	Limiter    *ratelimit.Limiter
	Metrics    *metrics.Metrics
	Health     map[string]HealthChecker
	Clock      requesttime.Clock
	AdminToken string
	// CORSOrigins enables CORS for browser-based registrar consoles.
	CORSOrigins []string
}

// NewRouter wires public endpoints and the authenticated EPP surface. The
// request clock runs before authentication so every check in a command sees
// the same instant.
func NewRouter(deps Dependencies, modules ...Registrar) http.Handler {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(chimw.Recoverer)
	if len(deps.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: deps.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Requested-With"},
			ExposedHeaders: []string{"X-Request-ID", "Retry-After"},
			MaxAge:         300,
		}))
	}
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
		metricsHandler := deps.Metrics.Handler()
		if deps.AdminToken != "" {
			metricsHandler = admin.RequireAdminToken(deps.AdminToken, deps.Logger)(metricsHandler)
		}
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}
	r.Get("/health", healthHandler(deps.Health))

	r.Group(func(r chi.Router) {
		r.Use(requesttime.New(clock))
		r.Use(metadata.ClientMetadata)
		r.Use(auth.RequireRegistrar(deps.Tokens, deps.Logger))
		if deps.Limiter != nil {
			r.Use(ratelimit.Middleware(deps.Limiter, deps.Logger))
		}
		for _, m := range modules {
			m.Register(r)
		}
	})
	return r
}

func healthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check.Health(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = "unavailable"
				continue
			}
			body[name] = "ok"
		}
		httputil.WriteJSON(w, status, body)
	}
}
