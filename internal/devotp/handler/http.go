// Package handler serves the dev-only OTP lookup endpoint.
package handler

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/Sambhav-gg/StreetBites/internal/devotp"
	"github.com/Sambhav-gg/StreetBites/internal/platform/httpjson"
)

const devOTPNote = "DEV MODE ONLY"

// Handler serves GET /dev/otp/{handle}. Only registered when dev OTP mode is on and not production.
type Handler struct {
	store devotp.Store
}

// NewHandler returns a handler that reads codes from the given store.
func NewHandler(store devotp.Store) *Handler {
	return &Handler{store: store}
}

type otpResponse struct {
	OTP  string `json:"otp"`
	Note string `json:"note"`
}

// Register mounts the route on r.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/dev/otp/{handle}", h.GetOTP).Methods(http.MethodGet)
}

// GetOTP returns the plain code for the handle. 404 if missing or expired.
func (h *Handler) GetOTP(w http.ResponseWriter, r *http.Request) {
	handle := strings.TrimSpace(mux.Vars(r)["handle"])
	if handle == "" {
		httpjson.BadRequest(w, "handle is required")
		return
	}
	code, ok := h.store.Get(r.Context(), handle)
	if !ok {
		httpjson.Error(w, http.StatusNotFound, "not_found", "OTP not found or expired")
		return
	}
	httpjson.Write(w, http.StatusOK, otpResponse{OTP: code, Note: devOTPNote})
}
