package repository

import (
	"context"

	"github.com/Sambhav-gg/StreetBites/internal/otpintent/domain"
)

// Repository holds pending OTP intents until they are verified, abandoned, or expire.
// Lookups treat expired intents as missing and return nil without error.
type Repository interface {
	Create(ctx context.Context, i *domain.Intent) error
	GetByHandle(ctx context.Context, handle string) (*domain.Intent, error)
	// Take atomically returns and removes the intent. Of concurrent callers at most one gets it.
	Take(ctx context.Context, handle string) (*domain.Intent, error)
	// RecordFailedAttempt increments the attempt counter and returns the new count,
	// or 0 if the intent is gone.
	RecordFailedAttempt(ctx context.Context, handle string) (int, error)
	Delete(ctx context.Context, handle string) error
}
