package middleware

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Sambhav-gg/StreetBites/internal/audit"
)

// Audit records an audit entry after each successful authenticated mutation (POST, PUT, PATCH,
// DELETE with a status below 400). Action and resource come from the mux route template.
// Unauthenticated requests are not audited here; the auth service logs signup and login itself.
func Audit(logger audit.AuditLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)
			if logger == nil || !audit.IsMutation(r.Method) || sw.status >= http.StatusBadRequest {
				return
			}
			userID, ok := GetUserID(r.Context())
			if !ok {
				return
			}
			tmpl := r.URL.Path
			if route := mux.CurrentRoute(r); route != nil {
				if t, err := route.GetPathTemplate(); err == nil {
					tmpl = t
				}
			}
			ar := audit.ParseRoute(r.Method, tmpl)
			logger.LogEvent(r.Context(), userID, ar.Action, ar.Resource, "")
		})
	}
}
