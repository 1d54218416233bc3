// Package service implements the rating aggregator: adding a review and keeping the stall's
// review count and average consistent with the stored reviews.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Sambhav-gg/StreetBites/internal/metrics"
	"github.com/Sambhav-gg/StreetBites/internal/review/domain"
	reviewrepo "github.com/Sambhav-gg/StreetBites/internal/review/repository"
	"github.com/Sambhav-gg/StreetBites/internal/telemetry"
	telemetrydomain "github.com/Sambhav-gg/StreetBites/internal/telemetry/domain"
)

var (
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
	ErrEmptyComment    = errors.New("comment is required")
	ErrStallNotFound   = errors.New("stall not found")
	ErrDuplicateReview = errors.New("you have already reviewed this stall")
)

var tracer = otel.Tracer("github.com/Sambhav-gg/StreetBites/internal/review/service")

// RatingService adds reviews and serves per-stall summaries.
type RatingService struct {
	repo   reviewrepo.Repository
	events telemetry.EventEmitter
	log    zerolog.Logger
	nowF   func() time.Time
}

// NewRatingService returns a RatingService. events may be nil.
func NewRatingService(repo reviewrepo.Repository, events telemetry.EventEmitter, log zerolog.Logger) *RatingService {
	if events == nil {
		events = telemetry.Nop{}
	}
	return &RatingService{
		repo:   repo,
		events: events,
		log:    log,
		nowF:   func() time.Time { return time.Now().UTC() },
	}
}

// AddReview stores the user's review of a stall and recomputes the stall's summary from all
// of its reviews in the same transaction. Reviews of one stall are serialized by a row lock.
func (s *RatingService) AddReview(ctx context.Context, userID, stallID string, rating int, comment string) (*domain.Review, domain.Summary, error) {
	ctx, span := tracer.Start(ctx, "RatingService.AddReview")
	defer span.End()
	span.SetAttributes(attribute.String("stall.id", stallID))

	comment = strings.TrimSpace(comment)
	stallID = strings.TrimSpace(stallID)
	if !domain.ValidRating(rating) {
		return nil, domain.Summary{}, ErrInvalidRating
	}
	if comment == "" {
		return nil, domain.Summary{}, ErrEmptyComment
	}
	if stallID == "" {
		return nil, domain.Summary{}, ErrStallNotFound
	}

	review := &domain.Review{
		ID:        uuid.New().String(),
		StallID:   stallID,
		UserID:    userID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: s.nowF(),
	}
	var summary domain.Summary
	err := s.repo.InStallTx(ctx, func(tx reviewrepo.Tx) error {
		ok, err := tx.LockStall(ctx, stallID)
		if err != nil {
			return fmt.Errorf("lock stall: %w", err)
		}
		if !ok {
			return ErrStallNotFound
		}
		existing, err := tx.FindByUserAndStall(ctx, userID, stallID)
		if err != nil {
			return fmt.Errorf("find review: %w", err)
		}
		if existing != nil {
			return ErrDuplicateReview
		}
		if err := tx.Insert(ctx, review); err != nil {
			if errors.Is(err, reviewrepo.ErrDuplicate) {
				return ErrDuplicateReview
			}
			return fmt.Errorf("insert review: %w", err)
		}
		review.ReviewerName, review.ReviewerAvatar, err = tx.LoadReviewer(ctx, userID)
		if err != nil {
			return fmt.Errorf("load reviewer: %w", err)
		}
		ratings, err := tx.ListRatings(ctx, stallID)
		if err != nil {
			return fmt.Errorf("list ratings: %w", err)
		}
		summary = domain.Summarize(ratings)
		if err := tx.UpdateSummary(ctx, stallID, summary, review.CreatedAt); err != nil {
			return fmt.Errorf("update summary: %w", err)
		}
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, domain.Summary{}, err
	}

	metrics.RecordReviewAdded()
	if err := s.events.Emit(ctx, telemetrydomain.NewEvent(telemetrydomain.EventReviewAdded, "review",
		map[string]any{"rating": rating, "numReviews": summary.NumReviews}).WithUser(userID).WithStall(stallID)); err != nil {
		s.log.Debug().Err(err).Msg("telemetry: emit review_added failed")
	}
	return review, summary, nil
}

// GetReviewSummary returns the stall's stored summary and its reviews, newest first.
func (s *RatingService) GetReviewSummary(ctx context.Context, stallID string) (domain.Summary, []*domain.Review, error) {
	ctx, span := tracer.Start(ctx, "RatingService.GetReviewSummary")
	defer span.End()

	got, err := s.repo.ReadStall(ctx, strings.TrimSpace(stallID))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return domain.Summary{}, nil, fmt.Errorf("read reviews: %w", err)
	}
	if got == nil {
		return domain.Summary{}, nil, ErrStallNotFound
	}
	return got.Summary, got.Reviews, nil
}
