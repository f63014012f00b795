package auth

import (
	"encoding/json"
	"net/http"
	"strings"
)

func deny(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": msg})
}

// Verifier parses the Authorization bearer token and stores the identity
// in the request context. Requests without a valid token are rejected.
func Verifier(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				deny(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			id, err := Parse(secret, strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				deny(w, http.StatusUnauthorized, "invalid bearer token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireAdmin gates admin-only routes. Must run after Verifier.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := FromContext(r.Context())
		if !ok || id.Role != RoleAdmin {
			deny(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
