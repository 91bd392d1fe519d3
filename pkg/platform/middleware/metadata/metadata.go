package metadata

import (
	"context"
	"net/http"
	"strings"

	"vigil/pkg/requestcontext"
)

// ClientMetadata extracts the client IP address and User-Agent from the
// request and adds them to the context for handlers and services. Apply it
// early in the chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIPFromRequest(r)
		userAgent := r.Header.Get("User-Agent")

		ctx := requestcontext.WithClientMetadata(r.Context(), ip, userAgent)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClientIP retrieves the client IP address from the context.
func GetClientIP(ctx context.Context) string {
	return requestcontext.ClientIP(ctx)
}

// GetUserAgent retrieves the User-Agent from the context.
func GetUserAgent(ctx context.Context) string {
	return requestcontext.UserAgent(ctx)
}

// ClientIPFromRequest extracts the real client IP from the request, handling
// proxies and load balancers.
func ClientIPFromRequest(r *http.Request) string {
	// X-Forwarded-For can carry a chain; the first hop is the client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is "ip:port"; IPv6 is "[::1]:port".
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return addr[:idx]
		}
		return addr
	}

	return "unknown"
}
