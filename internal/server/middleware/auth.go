package middleware

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

type contextKey string

const operatorKey contextKey = "operator"

// AnonymousOperator is the identity recorded when authentication is
// disabled.
const AnonymousOperator = "anonymous"

// Auth returns middleware that validates requests against a set of
// operator API keys, supplied as operator name -> bcrypt hash of the key.
// The token comes from the Authorization header (Bearer scheme) or the
// X-API-Key header. The matched operator name is attached to the request
// context for audit attribution. An empty operator map disables
// authentication. The health endpoint is always exempt.
func Auth(operators map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/health" {
				next.ServeHTTP(w, r)
				return
			}
			if len(operators) == 0 {
				next.ServeHTTP(w, r.WithContext(WithOperator(r.Context(), AnonymousOperator)))
				return
			}

			token := extractToken(r)
			if token == "" {
				writeUnauthorized(w, "missing authentication token")
				return
			}

			for name, hash := range operators {
				if bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) == nil {
					next.ServeHTTP(w, r.WithContext(WithOperator(r.Context(), name)))
					return
				}
			}
			writeUnauthorized(w, "invalid authentication token")
		})
	}
}

// WithOperator stores the operator identity on the context.
func WithOperator(ctx context.Context, operator string) context.Context {
	return context.WithValue(ctx, operatorKey, operator)
}

// OperatorFrom returns the authenticated operator name, or
// AnonymousOperator when none was set.
func OperatorFrom(ctx context.Context) string {
	if v, ok := ctx.Value(operatorKey).(string); ok && v != "" {
		return v
	}
	return AnonymousOperator
}

// extractToken looks for a token in the Authorization header (Bearer
// scheme) or in the X-API-Key header.
func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return strings.TrimSpace(key)
	}
	return ""
}

// writeUnauthorized sends a 401 response with a JSON error body.
func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
