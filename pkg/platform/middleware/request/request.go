// Package request assigns each request a stable ID for log correlation.
package request

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"vigil/pkg/requestcontext"
)

// Header carries the request ID on responses and is honored on requests so
// upstream proxies can thread their own IDs through.
const Header = "X-Request-ID"

// Middleware tags the request context with an ID, generating one when the
// caller did not supply it.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(Header)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(Header, requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	return requestcontext.RequestID(ctx)
}
