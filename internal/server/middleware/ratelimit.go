package middleware

import (
	"net/http"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Sambhav-gg/StreetBites/internal/platform/httpjson"
)

// maxTrackedClients bounds the limiter map; Cleanup resets it past this size.
const maxTrackedClients = 10000

// RateLimiter is a per-client-IP token bucket.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
	log      zerolog.Logger
}

// NewRateLimiter returns a limiter allowing rps requests per second per IP with the given burst.
func NewRateLimiter(rps float64, burst int, log zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
		log:      log,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	limiter, ok := rl.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

// Handler responds 429 when the client's bucket is empty.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := ClientIP(r.Context())
		if key == "" {
			key = clientIPFromRequest(r)
		}
		if !rl.getLimiter(key).Allow() {
			rl.log.Warn().Str("ip", key).Str("path", r.URL.Path).Msg("rate limit exceeded")
			w.Header().Set("Retry-After", "1")
			httpjson.Error(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Cleanup drops all tracked clients once the map grows past maxTrackedClients. Returns true if it did.
func (rl *RateLimiter) Cleanup() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if len(rl.limiters) <= maxTrackedClients {
		return false
	}
	rl.limiters = make(map[string]*rate.Limiter)
	return true
}
