// Package request assigns a correlation id to every inbound request.
package request

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/alangunning/nomulus/pkg/requestcontext"
)

// HeaderRequestID carries the correlation id in both directions.
const HeaderRequestID = "X-Request-ID"

const maxRequestIDLength = 128

// RequestID reuses a caller-supplied X-Request-ID when it is short and printable,
// otherwise it mints a UUID. The id is echoed on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(HeaderRequestID))
		if requestID == "" || len(requestID) > maxRequestIDLength || strings.ContainsAny(requestID, "\r\n") {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(r *http.Request) string {
	return requestcontext.RequestID(r.Context())
}
