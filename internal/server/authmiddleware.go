package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/tjfontaine/vertex-claude-gateway/internal/api/openai"
)

// APIKeyMiddleware guards routes with a static key set. The key arrives as
// "Authorization: Bearer <key>"; a bare key without the scheme is accepted
// too. Rejections use the OpenAI error envelope so clients parse them the
// same way as every other gateway error.
func APIKeyMiddleware(keys []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k != "" {
			allowed[k] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeAuthError(w, "missing Authorization header")
				return
			}

			key := strings.TrimPrefix(header, "Bearer ")
			if _, ok := allowed[key]; !ok {
				writeAuthError(w, "invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(openai.ErrorResponse{
		Error: &openai.APIError{
			Message: message,
			Type:    "authentication_error",
		},
	})
}
