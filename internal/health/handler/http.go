// Package handler serves the readiness probe at GET /healthz.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sambhav-gg/StreetBites/internal/platform/httpjson"
)

// Pinger checks database connectivity.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker checks that the policy engine evaluates.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

const (
	StatusServing    = "SERVING"
	StatusNotServing = "NOT_SERVING"
)

const checkTimeout = 2 * time.Second

// Response is the /healthz body.
type Response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Server reports readiness for load balancers and orchestration.
type Server struct {
	pinger Pinger
	policy PolicyChecker
	log    zerolog.Logger
}

// NewServer returns a health server. pinger and policy may be nil; nil checks are skipped.
func NewServer(pinger Pinger, policy PolicyChecker, log zerolog.Logger) *Server {
	return &Server{pinger: pinger, policy: policy, log: log}
}

// Check runs every configured check and reports SERVING only if all pass.
func (s *Server) Check(ctx context.Context) Response {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	resp := Response{Status: StatusServing, Checks: map[string]string{}}
	if s.pinger != nil {
		resp.Checks["database"] = s.result(ctx, "database", s.pinger.PingContext)
	}
	if s.policy != nil {
		resp.Checks["policy"] = s.result(ctx, "policy", s.policy.HealthCheck)
	}
	for _, v := range resp.Checks {
		if v != "ok" {
			resp.Status = StatusNotServing
		}
	}
	return resp
}

func (s *Server) result(ctx context.Context, name string, check func(context.Context) error) string {
	if err := check(ctx); err != nil {
		s.log.Warn().Err(err).Str("check", name).Msg("health check failed")
		return "failing"
	}
	return "ok"
}

// ServeHTTP writes 200 when serving and 503 otherwise.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := s.Check(r.Context())
	status := http.StatusOK
	if resp.Status != StatusServing {
		status = http.StatusServiceUnavailable
	}
	httpjson.Write(w, status, resp)
}
