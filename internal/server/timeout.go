package server

import (
	"context"
	"net/http"
	"time"
)

// TimeoutMiddleware bounds request handling with a context deadline. It is
// cooperative: handlers must watch context.Done(). Streaming routes are never
// wrapped with it since an open stream outlives any fixed deadline.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
