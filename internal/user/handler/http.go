// Package handler exposes the authenticated user's profile and liked stalls under /api/person.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Sambhav-gg/StreetBites/internal/platform/httpjson"
	"github.com/Sambhav-gg/StreetBites/internal/server/middleware"
	stalldomain "github.com/Sambhav-gg/StreetBites/internal/stall/domain"
	"github.com/Sambhav-gg/StreetBites/internal/user/domain"
	"github.com/Sambhav-gg/StreetBites/internal/user/service"
)

// ProfileService is the subset of service.ProfileService used by the handler.
type ProfileService interface {
	GetProfile(ctx context.Context, userID string) (*domain.PublicView, error)
	UpdateProfile(ctx context.Context, userID string, upd service.ProfileUpdate) (*domain.PublicView, error)
	LikeStall(ctx context.Context, userID, stallID string) error
	UnlikeStall(ctx context.Context, userID, stallID string) error
	ListLikedStalls(ctx context.Context, userID string) ([]*stalldomain.Stall, error)
}

// Handler serves /api/person. Every route requires authentication.
type Handler struct {
	profiles ProfileService
	log      zerolog.Logger
}

// NewHandler returns a person handler.
func NewHandler(profiles ProfileService, log zerolog.Logger) *Handler {
	return &Handler{profiles: profiles, log: log}
}

// Register mounts the routes on r, which should be the /api/person subrouter.
func (h *Handler) Register(r *mux.Router) {
	r.Handle("/profile", middleware.RequireAuth(http.HandlerFunc(h.Profile))).Methods(http.MethodGet)
	r.Handle("/update-profile", middleware.RequireAuth(http.HandlerFunc(h.UpdateProfile))).Methods(http.MethodPut)
	r.Handle("/like/{stallId}", middleware.RequireAuth(http.HandlerFunc(h.Like))).Methods(http.MethodPost)
	r.Handle("/unlike/{stallId}", middleware.RequireAuth(http.HandlerFunc(h.Unlike))).Methods(http.MethodDelete)
	r.Handle("/liked-stalls", middleware.RequireAuth(http.HandlerFunc(h.LikedStalls))).Methods(http.MethodGet)
}

type userResponse struct {
	Message string             `json:"message,omitempty"`
	User    *domain.PublicView `json:"user"`
}

type updateProfileRequest struct {
	Name         *string `json:"name"`
	Email        *string `json:"email"`
	ProfilePhoto *string `json:"profilePhoto"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Profile returns the caller's profile.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	v, err := h.profiles.GetProfile(r.Context(), callerID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, userResponse{User: v})
}

// UpdateProfile changes the caller's name, email or photo.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.BadRequest(w, err.Error())
		return
	}
	v, err := h.profiles.UpdateProfile(r.Context(), callerID(r), service.ProfileUpdate{
		Name:      req.Name,
		Email:     req.Email,
		AvatarURL: req.ProfilePhoto,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, userResponse{Message: "Profile updated", User: v})
}

// Like adds a stall to the caller's liked set.
func (h *Handler) Like(w http.ResponseWriter, r *http.Request) {
	if err := h.profiles.LikeStall(r.Context(), callerID(r), mux.Vars(r)["stallId"]); err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, messageResponse{Message: "Stall liked"})
}

// Unlike removes a stall from the caller's liked set.
func (h *Handler) Unlike(w http.ResponseWriter, r *http.Request) {
	if err := h.profiles.UnlikeStall(r.Context(), callerID(r), mux.Vars(r)["stallId"]); err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, messageResponse{Message: "Stall unliked"})
}

// LikedStalls lists the caller's liked stalls.
func (h *Handler) LikedStalls(w http.ResponseWriter, r *http.Request) {
	list, err := h.profiles.ListLikedStalls(r.Context(), callerID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if list == nil {
		list = []*stalldomain.Stall{}
	}
	httpjson.Write(w, http.StatusOK, list)
}

func callerID(r *http.Request) string {
	id, _ := middleware.GetUserID(r.Context())
	return id
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidProfile):
		httpjson.BadRequest(w, err.Error())
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrStallNotFound):
		httpjson.Error(w, http.StatusNotFound, "not_found", err.Error())
	default:
		h.log.Error().Err(err).Msg("person request failed")
		httpjson.Internal(w)
	}
}
