// Package rbac checks the caller's role from the authenticated request context.
package rbac

import (
	"context"
	"errors"
	"net/http"

	"github.com/Sambhav-gg/StreetBites/internal/platform/httpjson"
	"github.com/Sambhav-gg/StreetBites/internal/server/middleware"
	userdomain "github.com/Sambhav-gg/StreetBites/internal/user/domain"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("role not permitted")
)

// RequireRole ensures the caller is authenticated and holds one of roles.
// Returns the caller's user id on success.
func RequireRole(ctx context.Context, roles ...userdomain.Role) (string, error) {
	userID, okUser := middleware.GetUserID(ctx)
	role, okRole := middleware.GetRole(ctx)
	if !okUser || !okRole {
		return "", ErrUnauthenticated
	}
	for _, r := range roles {
		if userdomain.Role(role) == r {
			return userID, nil
		}
	}
	return "", ErrForbidden
}

// RequireRoleHTTP rejects requests whose caller lacks one of roles with 401 or 403.
func RequireRoleHTTP(roles ...userdomain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := RequireRole(r.Context(), roles...); err != nil {
				if errors.Is(err, ErrUnauthenticated) {
					httpjson.Error(w, http.StatusUnauthorized, "unauthenticated", "missing or invalid authorization")
					return
				}
				httpjson.Error(w, http.StatusForbidden, "forbidden", "access denied for your role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
