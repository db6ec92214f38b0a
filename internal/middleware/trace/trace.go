// Package trace tags every request with an id so log lines from one ledger
// mutation can be correlated across the handler, service and store layers.
package trace

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey struct{}

// Middleware assigns each request an id, exposes it to the client via the
// X-Request-ID response header and stores it in the request context. A
// client-supplied X-Request-ID is honored so retries stay correlated.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), contextKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestID returns the request id stored in ctx, or "" outside a request.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKey{}).(string); ok {
		return id
	}
	return ""
}
