package middleware

import (
	"net/http"
	"strings"
)

// TokenVerifier checks an operator token
type TokenVerifier interface {
	VerifyToken(tokenString string) (string, error)
}

// Auth requires a valid bearer token on every request
func Auth(tv TokenVerifier) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			if _, err := tv.VerifyToken(token); err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
