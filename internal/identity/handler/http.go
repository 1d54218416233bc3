// Package handler exposes the OTP signup and login flow over HTTP.
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Sambhav-gg/StreetBites/internal/identity/service"
	"github.com/Sambhav-gg/StreetBites/internal/platform/httpjson"
	"github.com/Sambhav-gg/StreetBites/internal/server/middleware"
	userdomain "github.com/Sambhav-gg/StreetBites/internal/user/domain"
)

// AuthService is the subset of service.AuthService used by the handler.
type AuthService interface {
	RequestCode(ctx context.Context, phone, intentType string, signup *service.SignupInput) (string, error)
	VerifyCode(ctx context.Context, handle, code string) (*service.AuthResult, error)
	Logout(ctx context.Context, userID string)
}

// Handler serves /api/auth.
type Handler struct {
	auth         AuthService
	secureCookie bool
	log          zerolog.Logger
}

// NewHandler returns an auth handler. secureCookie marks the session cookie Secure (production).
func NewHandler(auth AuthService, secureCookie bool, log zerolog.Logger) *Handler {
	return &Handler{auth: auth, secureCookie: secureCookie, log: log}
}

// Register mounts the routes on r, which should be the /api/auth subrouter.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/send-otp", h.SendOTP).Methods(http.MethodPost)
	r.HandleFunc("/verify-otp", h.VerifyOTP).Methods(http.MethodPost)
	r.HandleFunc("/logout", h.Logout).Methods(http.MethodPost)
}

type sendOTPRequest struct {
	Phone string `json:"phone"`
	Type  string `json:"type"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type sendOTPResponse struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// SendOTP starts a login or signup by sending a code to the phone.
func (h *Handler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req sendOTPRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.BadRequest(w, err.Error())
		return
	}
	var signup *service.SignupInput
	if req.Name != "" || req.Email != "" || req.Role != "" {
		signup = &service.SignupInput{Name: req.Name, Email: req.Email, Role: req.Role}
	}
	handle, err := h.auth.RequestCode(r.Context(), req.Phone, req.Type, signup)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, sendOTPResponse{SessionID: handle, Message: "OTP sent"})
}

type verifyOTPRequest struct {
	SessionID string `json:"sessionId"`
	OTP       string `json:"otp"`
}

type verifyOTPResponse struct {
	Token     string                `json:"token"`
	ExpiresAt time.Time             `json:"expiresAt"`
	User      userdomain.PublicView `json:"user"`
}

// VerifyOTP checks the code and, on success, sets the session cookie and returns the token and account.
func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.BadRequest(w, err.Error())
		return
	}
	res, err := h.auth.VerifyCode(r.Context(), req.SessionID, req.OTP)
	if err != nil {
		h.writeError(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    res.Token,
		Path:     "/",
		Expires:  res.ExpiresAt,
		MaxAge:   int(time.Until(res.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
	httpjson.Write(w, http.StatusOK, verifyOTPResponse{Token: res.Token, ExpiresAt: res.ExpiresAt, User: res.User})
}

// Logout clears the session cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	h.auth.Logout(r.Context(), userID)
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
	httpjson.Write(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("auth: request failed")
		httpjson.Internal(w)
		return
	}
	msg := err.Error()
	if errors.Is(err, service.ErrProviderUnavailable) {
		h.log.Warn().Err(err).Msg("auth: otp provider unavailable")
		msg = service.ErrProviderUnavailable.Error()
	}
	httpjson.Error(w, status, code, msg)
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidPhone),
		errors.Is(err, service.ErrInvalidIntentType),
		errors.Is(err, service.ErrInvalidSignupProfile):
		return http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, service.ErrInvalidCode):
		return http.StatusUnauthorized, "invalid_code"
	case errors.Is(err, service.ErrExpiredOrUnknownSession):
		return http.StatusBadRequest, "expired_or_unknown_session"
	case errors.Is(err, service.ErrTooManyAttempts):
		return http.StatusTooManyRequests, "too_many_attempts"
	case errors.Is(err, service.ErrAccountNotFound):
		return http.StatusNotFound, "account_not_found"
	case errors.Is(err, service.ErrAccountAlreadyExists):
		return http.StatusConflict, "account_already_exists"
	case errors.Is(err, service.ErrProviderUnavailable):
		return http.StatusServiceUnavailable, "provider_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
