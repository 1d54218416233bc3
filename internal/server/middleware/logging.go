package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sambhav-gg/StreetBites/internal/metrics"
	"github.com/Sambhav-gg/StreetBites/internal/platform/httpjson"
)

// AccessLog logs one line per request with method, route, status, duration, and request id.
func AccessLog(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)

			ev := log.Info()
			if sw.status >= http.StatusInternalServerError {
				ev = log.Error()
			}
			ev.Str("request_id", RequestID(r.Context())).
				Str("method", r.Method).
				Str("route", metrics.RouteLabel(r)).
				Int("status", sw.status).
				Dur("duration", time.Since(start)).
				Str("ip", ClientIP(r.Context())).
				Msg("http request")
		})
	}
}

// Recover turns a panic in a handler into a 500 and logs the stack.
func Recover(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					if v == http.ErrAbortHandler {
						panic(v)
					}
					log.Error().
						Interface("panic", v).
						Str("request_id", RequestID(r.Context())).
						Bytes("stack", debug.Stack()).
						Msg("handler panic")
					httpjson.Internal(w)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
