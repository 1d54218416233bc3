// Package handler serves the vendor analytics report.
package handler

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Sambhav-gg/StreetBites/internal/analytics/domain"
	"github.com/Sambhav-gg/StreetBites/internal/platform/httpjson"
	"github.com/Sambhav-gg/StreetBites/internal/platform/rbac"
	"github.com/Sambhav-gg/StreetBites/internal/server/middleware"
	userdomain "github.com/Sambhav-gg/StreetBites/internal/user/domain"
)

// AnalyticsService is the subset of service.AnalyticsService used by the handler.
type AnalyticsService interface {
	VendorReport(ctx context.Context, ownerID string) (*domain.Report, error)
}

// Handler serves GET /api/stalls/vendor/analytics.
type Handler struct {
	analytics AnalyticsService
	log       zerolog.Logger
}

// NewHandler returns an analytics handler.
func NewHandler(analytics AnalyticsService, log zerolog.Logger) *Handler {
	return &Handler{analytics: analytics, log: log}
}

// Register mounts the route on r, which should be the /api/stalls subrouter.
func (h *Handler) Register(r *mux.Router) {
	r.Handle("/vendor/analytics", rbac.RequireRoleHTTP(userdomain.RoleVendor)(http.HandlerFunc(h.VendorReport))).
		Methods(http.MethodGet)
}

// VendorReport returns the caller's stall analytics.
func (h *Handler) VendorReport(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	rep, err := h.analytics.VendorReport(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Msg("vendor analytics failed")
		httpjson.Error(w, http.StatusInternalServerError, "internal", "Failed to fetch analytics")
		return
	}
	httpjson.Write(w, http.StatusOK, rep)
}
