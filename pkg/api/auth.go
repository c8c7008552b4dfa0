package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// authMiddleware requires the bearer token (or X-API-Key) on everything
// except /health and /metrics.
func authMiddleware(token string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			if tokenMatches(strings.TrimPrefix(auth, "Bearer "), token) {
				next.ServeHTTP(w, r)
				return
			}
		}
		if key := r.Header.Get("X-API-Key"); key != "" && tokenMatches(key, token) {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("WWW-Authenticate", `Bearer realm="ldapsh"`)
		writeError(w, http.StatusUnauthorized, "authentication required")
	})
}

func tokenMatches(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
