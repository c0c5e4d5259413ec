package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// AuthConfig holds the API keys accepted by the auth middleware.
type AuthConfig struct {
	APIKeys []string
}

// NewAuthConfig returns an AuthConfig for keys, or nil when there are none.
func NewAuthConfig(keys []string) *AuthConfig {
	var valid []string
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			valid = append(valid, k)
		}
	}
	if len(valid) == 0 {
		return nil
	}
	return &AuthConfig{APIKeys: valid}
}

// authMiddleware wraps an http.Handler with Bearer / X-API-Key checks.
// Requests to /health and /metrics bypass authentication.
func authMiddleware(cfg *AuthConfig, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && cfg.valid(token) {
			next.ServeHTTP(w, r)
			return
		}
		if key := r.Header.Get("X-API-Key"); key != "" && cfg.valid(key) {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("WWW-Authenticate", `Bearer realm="conftree API"`)
		writeJSON(w, http.StatusUnauthorized, Response{
			Success: false,
			Error:   "authentication required",
		})
	})
}

// valid compares key against every configured key in constant time.
func (c *AuthConfig) valid(key string) bool {
	ok := 0
	for _, k := range c.APIKeys {
		ok |= subtle.ConstantTimeCompare([]byte(key), []byte(k))
	}
	return ok == 1
}
