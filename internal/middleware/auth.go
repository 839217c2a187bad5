package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"bgshelf-api/pkg/apierror"
	"bgshelf-api/pkg/response"
)

// NewAPIKeyMiddleware guards routes with a static API key read from the
// X-API-Key header or a Bearer token. No keys means no guard.
func NewAPIKeyMiddleware(keys []string) func(http.Handler) http.Handler {
	valid := make([]string, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			valid = append(valid, k)
		}
	}

	return func(next http.Handler) http.Handler {
		if len(valid) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				auth := r.Header.Get("Authorization")
				if strings.HasPrefix(auth, "Bearer ") {
					apiKey = strings.TrimPrefix(auth, "Bearer ")
				}
			}

			if apiKey == "" {
				response.Error(w, apierror.Unauthorized("Authentication required. Use X-API-Key header."))
				return
			}
			if !isValidKey(apiKey, valid) {
				response.Error(w, apierror.Unauthorized("Invalid API key"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isValidKey checks if the provided key is in the valid keys list.
func isValidKey(key string, validKeys []string) bool {
	for _, v := range validKeys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(v)) == 1 {
			return true
		}
	}
	return false
}
