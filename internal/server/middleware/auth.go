package middleware

import (
	"net/http"
	"strings"

	"github.com/Sambhav-gg/StreetBites/internal/platform/httpjson"
	"github.com/Sambhav-gg/StreetBites/internal/security"
)

const bearerPrefix = "bearer "

// SessionCookieName is the cookie carrying the session token for browser clients.
const SessionCookieName = "jwt"

// Auth validates the session token from the Authorization header (Bearer) or the jwt cookie and
// sets user_id and role in context. Requests without a valid token pass through unauthenticated;
// RequireAuth rejects them on protected routes.
func Auth(tokens *security.TokenProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			ident, err := tokens.ValidateAccess(token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := WithIdentity(r.Context(), ident.UserID, ident.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth responds 401 unless Auth placed an identity in the context.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUserID(r.Context()); !ok {
			httpjson.Error(w, http.StatusUnauthorized, "unauthenticated", "missing or invalid authorization")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractToken returns the Bearer token, else the jwt cookie value, or "".
func extractToken(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) > len(bearerPrefix) && strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(v[len(bearerPrefix):])
	}
	if c, err := r.Cookie(SessionCookieName); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}
