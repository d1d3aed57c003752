// Package auth authenticates the calling registrar from its session token.
//
// Authentication establishes who the registrar is; whether that registrar may see a
// particular resource is decided later, by the flow.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	id "github.com/alangunning/nomulus/pkg/domain"
	"github.com/alangunning/nomulus/pkg/epp"
	"github.com/alangunning/nomulus/pkg/requestcontext"
)

// TokenValidator validates a bearer session token.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// Claims are the fields the middleware needs from a validated token.
type Claims struct {
	RegistrarID string
	SessionID   string
}

// RequireRegistrar rejects requests without a valid bearer token and stores the
// registrar id from the token in the request context.
func RequireRegistrar(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				logger.WarnContext(ctx, "unauthenticated request - missing token",
					"request_id", requestID,
				)
				epp.WriteResult(w, http.StatusUnauthorized, epp.ResultAuthenticationError, "")
				return
			}

			claims, err := validator.ValidateToken(strings.TrimSpace(token))
			if err != nil {
				logger.WarnContext(ctx, "unauthenticated request - invalid token",
					"error", err,
					"request_id", requestID,
				)
				epp.WriteResult(w, http.StatusUnauthorized, epp.ResultAuthenticationError, "")
				return
			}

			registrarID, err := id.ParseRegistrarID(claims.RegistrarID)
			if err != nil {
				logger.WarnContext(ctx, "unauthenticated request - bad registrar claim",
					"error", err,
					"request_id", requestID,
				)
				epp.WriteResult(w, http.StatusUnauthorized, epp.ResultAuthenticationError, "")
				return
			}

			ctx = requestcontext.WithRegistrarID(ctx, registrarID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
