// Package metadata records where a request came from so audit lines can name
// the caller's address and client program.
package metadata

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type contextKeyClientIP struct{}
type contextKeyClient struct{}

// ClientMetadata stores the client IP and client name in the request context.
// The client name is X-Requested-With when a tool sets it, else the User-Agent.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := r.Header.Get("X-Requested-With")
		if client == "" {
			client = r.Header.Get("User-Agent")
		}
		ctx := WithClientMetadata(r.Context(), ClientIPFromRequest(r), client)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func WithClientMetadata(ctx context.Context, clientIP, client string) context.Context {
	ctx = context.WithValue(ctx, contextKeyClientIP{}, clientIP)
	return context.WithValue(ctx, contextKeyClient{}, client)
}

func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(contextKeyClientIP{}).(string)
	return ip
}

func Client(ctx context.Context) string {
	client, _ := ctx.Value(contextKeyClient{}).(string)
	return client
}

// ClientIPFromRequest prefers the first X-Forwarded-For hop, then X-Real-IP,
// then the connection's remote address.
func ClientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
