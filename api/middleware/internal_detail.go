package middleware

import (
	"net/http"

	"github.com/angelmondragon/civicpulse-backend/api/responses"
)

// InternalDetail exposes underlying error messages on 5xx responses. Mount it
// only in development.
func InternalDetail(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(responses.WithInternalDetail(r.Context())))
		})
	}
}
