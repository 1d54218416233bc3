// Package service implements the people endpoints: profile reads and edits and liked stalls.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	stalldomain "github.com/Sambhav-gg/StreetBites/internal/stall/domain"
	"github.com/Sambhav-gg/StreetBites/internal/user/domain"
	userrepo "github.com/Sambhav-gg/StreetBites/internal/user/repository"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrStallNotFound  = errors.New("stall not found")
	ErrInvalidProfile = errors.New("invalid profile")
)

// UserRepo is the subset of the user repository used by ProfileService.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id string, p userrepo.Profile, at time.Time) error
	AddLikedStall(ctx context.Context, userID, stallID string, at time.Time) error
	RemoveLikedStall(ctx context.Context, userID, stallID string) error
}

// StallLookup resolves liked stall ids.
type StallLookup interface {
	Exists(ctx context.Context, id string) (bool, error)
	ListByIDs(ctx context.Context, ids []string) ([]*stalldomain.Stall, error)
}

// ProfileUpdate carries the fields to change; nil fields keep their stored value.
type ProfileUpdate struct {
	Name      *string
	Email     *string
	AvatarURL *string
}

// ProfileService serves profile and liked-stall operations for the authenticated user.
type ProfileService struct {
	users  UserRepo
	stalls StallLookup
	log    zerolog.Logger
	nowF   func() time.Time
}

// NewProfileService returns a ProfileService.
func NewProfileService(users UserRepo, stalls StallLookup, log zerolog.Logger) *ProfileService {
	return &ProfileService{
		users:  users,
		stalls: stalls,
		log:    log,
		nowF:   func() time.Time { return time.Now().UTC() },
	}
}

// GetProfile returns the public view of the user.
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*domain.PublicView, error) {
	u, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	v := u.Public()
	return &v, nil
}

// UpdateProfile changes name, email and avatar. Phone and role are immutable.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*domain.PublicView, error) {
	u, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := userrepo.Profile{Name: u.Name, Email: u.Email, AvatarURL: u.AvatarURL}
	if upd.Name != nil {
		p.Name = strings.TrimSpace(*upd.Name)
		if p.Name == "" {
			return nil, fmt.Errorf("%w: name must not be blank", ErrInvalidProfile)
		}
	}
	if upd.Email != nil {
		p.Email = strings.ToLower(strings.TrimSpace(*upd.Email))
		if p.Email != "" && !domain.ValidEmail(p.Email) {
			return nil, fmt.Errorf("%w: email is not valid", ErrInvalidProfile)
		}
	}
	if upd.AvatarURL != nil {
		p.AvatarURL = strings.TrimSpace(*upd.AvatarURL)
	}
	if err := s.users.UpdateProfile(ctx, userID, p, s.nowF()); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	u.Name, u.Email, u.AvatarURL = p.Name, p.Email, p.AvatarURL
	v := u.Public()
	return &v, nil
}

// LikeStall adds stallID to the user's liked set. Liking twice is a no-op.
func (s *ProfileService) LikeStall(ctx context.Context, userID, stallID string) error {
	if _, err := s.load(ctx, userID); err != nil {
		return err
	}
	ok, err := s.stalls.Exists(ctx, stallID)
	if err != nil {
		return fmt.Errorf("look up stall: %w", err)
	}
	if !ok {
		return ErrStallNotFound
	}
	if err := s.users.AddLikedStall(ctx, userID, stallID, s.nowF()); err != nil {
		return fmt.Errorf("like stall: %w", err)
	}
	return nil
}

// UnlikeStall removes stallID from the user's liked set.
func (s *ProfileService) UnlikeStall(ctx context.Context, userID, stallID string) error {
	if _, err := s.load(ctx, userID); err != nil {
		return err
	}
	if err := s.users.RemoveLikedStall(ctx, userID, stallID); err != nil {
		return fmt.Errorf("unlike stall: %w", err)
	}
	return nil
}

// ListLikedStalls returns the liked stalls that still exist, oldest like first.
func (s *ProfileService) ListLikedStalls(ctx context.Context, userID string) ([]*stalldomain.Stall, error) {
	u, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(u.LikedStallIDs) == 0 {
		return []*stalldomain.Stall{}, nil
	}
	return s.stalls.ListByIDs(ctx, u.LikedStallIDs)
}

func (s *ProfileService) load(ctx context.Context, userID string) (*domain.User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUserNotFound
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}
