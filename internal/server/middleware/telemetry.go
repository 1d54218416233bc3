package middleware

import (
	"net/http"
	"time"

	"github.com/Sambhav-gg/StreetBites/internal/metrics"
	"github.com/Sambhav-gg/StreetBites/internal/telemetry"
	"github.com/Sambhav-gg/StreetBites/internal/telemetry/domain"
)

// httpRequestMetadata is the JSON shape stored in Event.Metadata for http_request events.
type httpRequestMetadata struct {
	Method     string `json:"method"`
	Route      string `json:"route"`
	StatusCode int    `json:"status_code"`
	DurationMs int64  `json:"duration_ms"`
	ClientIP   string `json:"client_ip"`
}

// Telemetry emits an http_request event after each request. Best-effort: the emitter is expected
// to be asynchronous (telemetry.Async). If emitter is nil, the middleware no-ops.
// skipRoutes is the set of route templates to not emit (e.g. /healthz, /metrics).
func Telemetry(emitter telemetry.EventEmitter, skipRoutes map[string]bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)
			if emitter == nil {
				return
			}
			route := metrics.RouteLabel(r)
			if skipRoutes[route] {
				return
			}
			ev := domain.NewEvent(domain.EventHTTPRequest, "http_middleware", httpRequestMetadata{
				Method:     r.Method,
				Route:      route,
				StatusCode: sw.status,
				DurationMs: time.Since(start).Milliseconds(),
				ClientIP:   ClientIP(r.Context()),
			})
			if userID, ok := GetUserID(r.Context()); ok {
				ev.WithUser(userID)
			}
			_ = emitter.Emit(r.Context(), ev)
		})
	}
}
