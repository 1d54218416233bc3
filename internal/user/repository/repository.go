package repository

import (
	"context"
	"time"

	"github.com/Sambhav-gg/StreetBites/internal/user/domain"
)

// Repository defines persistence for user accounts and their liked stalls.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	// Create returns domain.ErrPhoneTaken when the phone is already registered.
	Create(ctx context.Context, u *domain.User) error
	UpdateProfile(ctx context.Context, id string, p Profile, at time.Time) error
	// AddLikedStall is idempotent.
	AddLikedStall(ctx context.Context, userID, stallID string, at time.Time) error
	RemoveLikedStall(ctx context.Context, userID, stallID string) error
}

// Profile is the mutable part of an account.
type Profile struct {
	Name      string
	Email     string
	AvatarURL string
}
