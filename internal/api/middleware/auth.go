package middleware

import (
	"context"
	"net/http"
	"strings"
)

// ContextKey is a type for request context keys
type ContextKey string

// ContextKeyAPIKey is the context key holding the presented API key
const ContextKeyAPIKey ContextKey = "api_key"

// APIKeyAuth returns middleware that checks the Authorization bearer token
// against the configured API key. OPTIONS requests pass through so CORS
// preflight keeps working.
func APIKeyAuth(key string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == "OPTIONS" {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				http.Error(w, `{"error":"invalid authorization header format"}`, http.StatusUnauthorized)
				return
			}

			presented := parts[1]
			if presented != key {
				http.Error(w, `{"error":"invalid API key"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyAPIKey, presented)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAPIKey returns the API key attached to the request context, or an
// empty string for unauthenticated requests.
func GetAPIKey(ctx context.Context) string {
	if key, ok := ctx.Value(ContextKeyAPIKey).(string); ok {
		return key
	}
	return ""
}
