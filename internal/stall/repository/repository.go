package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Sambhav-gg/StreetBites/internal/stall/domain"
)

// ErrDuplicateName is returned by Create and Update when the owner already has a stall with that name.
var ErrDuplicateName = errors.New("owner already has a stall with this name")

// Repository defines persistence for stalls and their impressions.
// Lookups return nil without error when the stall does not exist.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Stall, error)
	ListAll(ctx context.Context) ([]*domain.Stall, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Stall, error)
	// ListByIDs returns the stalls that exist, in no particular order.
	ListByIDs(ctx context.Context, ids []string) ([]*domain.Stall, error)
	ExistsByOwnerAndName(ctx context.Context, ownerID, name string) (bool, error)
	Create(ctx context.Context, s *domain.Stall) error
	// Update overwrites the editable fields. Returns false if the stall does not exist.
	Update(ctx context.Context, s *domain.Stall) (bool, error)
	UpdateMenu(ctx context.Context, id string, menu []domain.MenuItem, at time.Time) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	// Search matches dish against stall names and menu item names, case-insensitively.
	// Empty dish matches everything; non-empty city must match exactly.
	Search(ctx context.Context, dish, city string) ([]*domain.Stall, error)
	TopRated(ctx context.Context, limit int) ([]*domain.Stall, error)
	Nearby(ctx context.Context, at domain.Location, radiusKm float64) ([]*domain.Stall, error)
	ByCity(ctx context.Context, city string) ([]*domain.Stall, error)
	// AddImpression records one view. Returns false if the stall does not exist.
	AddImpression(ctx context.Context, id string, at time.Time) (bool, error)
}
