package middleware

import (
	"net/http"
	"strings"

	"github.com/Rithvickkr/DOBBE-assignment/internal/auth"
)

// TokenParser verifies a bearer token and returns its principal.
type TokenParser interface {
	Parse(token string) (auth.Principal, error)
}

// RequireUser enforces a valid bearer token and stores the principal in context.
func RequireUser(parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if parser == nil {
				http.Error(w, "auth disabled", http.StatusUnauthorized)
				return
			}
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			principal, err := parser.Parse(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireRole rejects callers whose principal lacks role. Use after RequireUser.
func RequireRole(role auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if principal.Role != role {
				http.Error(w, "Not authorized", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
