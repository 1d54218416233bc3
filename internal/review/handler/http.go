// Package handler exposes reviews over HTTP under /api/reviews.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Sambhav-gg/StreetBites/internal/platform/httpjson"
	"github.com/Sambhav-gg/StreetBites/internal/review/domain"
	"github.com/Sambhav-gg/StreetBites/internal/review/service"
	"github.com/Sambhav-gg/StreetBites/internal/server/middleware"
)

// RatingService is the subset of service.RatingService used by the handler.
type RatingService interface {
	AddReview(ctx context.Context, userID, stallID string, rating int, comment string) (*domain.Review, domain.Summary, error)
	GetReviewSummary(ctx context.Context, stallID string) (domain.Summary, []*domain.Review, error)
}

// Handler serves /api/reviews.
type Handler struct {
	ratings RatingService
	log     zerolog.Logger
}

// NewHandler returns a review handler.
func NewHandler(ratings RatingService, log zerolog.Logger) *Handler {
	return &Handler{ratings: ratings, log: log}
}

// Register mounts the routes on r, which should be the /api/reviews subrouter.
func (h *Handler) Register(r *mux.Router) {
	r.Handle("", middleware.RequireAuth(http.HandlerFunc(h.Add))).Methods(http.MethodPost)
	r.Handle("/", middleware.RequireAuth(http.HandlerFunc(h.Add))).Methods(http.MethodPost)
	r.HandleFunc("/{stallId}", h.List).Methods(http.MethodGet)
}

type addReviewRequest struct {
	StallID string `json:"stallId"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type addReviewResponse struct {
	Message string         `json:"message"`
	Review  *domain.Review `json:"review"`
	Summary domain.Summary `json:"summary"`
}

type listResponse struct {
	domain.Summary
	Reviews []*domain.Review `json:"reviews"`
}

// Add creates the caller's review of a stall.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	var req addReviewRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.BadRequest(w, err.Error())
		return
	}
	userID, _ := middleware.GetUserID(r.Context())
	review, summary, err := h.ratings.AddReview(r.Context(), userID, req.StallID, req.Rating, req.Comment)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, addReviewResponse{Message: "Review added", Review: review, Summary: summary})
}

// List returns a stall's summary and reviews, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	summary, reviews, err := h.ratings.GetReviewSummary(r.Context(), mux.Vars(r)["stallId"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	if reviews == nil {
		reviews = []*domain.Review{}
	}
	httpjson.Write(w, http.StatusOK, listResponse{Summary: summary, Reviews: reviews})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRating), errors.Is(err, service.ErrEmptyComment):
		httpjson.BadRequest(w, err.Error())
	case errors.Is(err, service.ErrStallNotFound):
		httpjson.Error(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, service.ErrDuplicateReview):
		httpjson.Error(w, http.StatusConflict, "duplicate_review", err.Error())
	default:
		h.log.Error().Err(err).Msg("review request failed")
		httpjson.Internal(w)
	}
}
