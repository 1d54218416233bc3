package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Sambhav-gg/StreetBites/internal/review/domain"
)

// ErrDuplicate is returned by Tx.Insert when the user already reviewed the stall.
var ErrDuplicate = errors.New("review already exists for this user and stall")

// Tx is the set of operations available while a stall's review state is locked.
type Tx interface {
	// LockStall takes a row lock on the stall. Returns false if the stall does not exist.
	LockStall(ctx context.Context, stallID string) (bool, error)
	// FindByUserAndStall returns the user's review of the stall, or nil.
	FindByUserAndStall(ctx context.Context, userID, stallID string) (*domain.Review, error)
	Insert(ctx context.Context, r *domain.Review) error
	// LoadReviewer returns the reviewer's display name and avatar; empty strings if the user is gone.
	LoadReviewer(ctx context.Context, userID string) (name, avatar string, err error)
	ListRatings(ctx context.Context, stallID string) ([]int, error)
	UpdateSummary(ctx context.Context, stallID string, s domain.Summary, at time.Time) error
}

// StallReviews is a consistent read of a stall's stored summary and its reviews, newest first.
type StallReviews struct {
	Summary domain.Summary
	Reviews []*domain.Review
}

// Repository persists reviews and the per-stall rating summary.
type Repository interface {
	// InStallTx runs fn in a transaction; fn's error or a failed commit rolls everything back.
	InStallTx(ctx context.Context, fn func(tx Tx) error) error
	// ReadStall returns nil when the stall does not exist.
	ReadStall(ctx context.Context, stallID string) (*StallReviews, error)
}
