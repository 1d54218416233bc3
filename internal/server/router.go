// Package server assembles the HTTP router: middleware chain, feature handlers, and ops endpoints.
package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Sambhav-gg/StreetBites/internal/audit"
	"github.com/Sambhav-gg/StreetBites/internal/metrics"
	"github.com/Sambhav-gg/StreetBites/internal/platform/httpjson"
	"github.com/Sambhav-gg/StreetBites/internal/security"
	"github.com/Sambhav-gg/StreetBites/internal/server/middleware"
	"github.com/Sambhav-gg/StreetBites/internal/telemetry"
)

// Registrar mounts a feature's routes on a subrouter.
type Registrar interface {
	Register(r *mux.Router)
}

// Deps holds the dependencies needed to build the router. Nil Registrars are skipped.
type Deps struct {
	Tokens      *security.TokenProvider
	AuditLogger audit.AuditLogger
	Events      telemetry.EventEmitter
	RateLimiter *middleware.RateLimiter

	AllowedOrigins []string
	Log            zerolog.Logger

	Auth      Registrar // /api/auth
	Profile   Registrar // /api/person
	Stalls    Registrar // /api/stalls
	Analytics Registrar // /api/stalls/vendor/analytics
	Reviews   Registrar // /api/reviews

	Health http.Handler
	// DevOTP is set only when OTP dev mode is enabled.
	DevOTP Registrar
}

var telemetrySkip = map[string]bool{
	"/healthz": true,
	"/metrics": true,
}

// NewRouter returns the root handler. Route-aware middleware (metrics, access log, auth,
// telemetry, audit) runs inside the mux so it sees the matched route template.
func NewRouter(deps Deps) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	r.Use(
		metrics.Middleware,
		middleware.AccessLog(deps.Log),
		middleware.Auth(deps.Tokens),
		middleware.Telemetry(deps.Events, telemetrySkip),
	)
	if deps.AuditLogger != nil {
		r.Use(middleware.Audit(deps.AuditLogger))
	}

	if deps.Health != nil {
		r.Handle("/healthz", deps.Health).Methods(http.MethodGet)
	}
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	if deps.Auth != nil {
		auth := api.PathPrefix("/auth").Subrouter()
		if deps.RateLimiter != nil {
			auth.Use(deps.RateLimiter.Handler)
		}
		deps.Auth.Register(auth)
	}
	if deps.Profile != nil {
		deps.Profile.Register(api.PathPrefix("/person").Subrouter())
	}
	stalls := api.PathPrefix("/stalls").Subrouter()
	// Analytics goes first so /vendor/analytics is matched before the stall /{id} catch-all.
	if deps.Analytics != nil {
		deps.Analytics.Register(stalls)
	}
	if deps.Stalls != nil {
		deps.Stalls.Register(stalls)
	}
	if deps.Reviews != nil {
		deps.Reviews.Register(api.PathPrefix("/reviews").Subrouter())
	}
	if deps.DevOTP != nil {
		deps.DevOTP.Register(r)
	}

	var h http.Handler = r
	h = middleware.CORS(deps.AllowedOrigins)(h)
	h = middleware.RequestContext(h)
	h = middleware.Recover(deps.Log)(h)
	return h
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	httpjson.Error(w, http.StatusNotFound, "not_found", "route not found")
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	httpjson.Error(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
}
