package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	stalldomain "github.com/Sambhav-gg/StreetBites/internal/stall/domain"
	"github.com/Sambhav-gg/StreetBites/internal/user/domain"
	userrepo "github.com/Sambhav-gg/StreetBites/internal/user/repository"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]*domain.User
	err   error
}

func (m *memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	c := *u
	c.LikedStallIDs = append([]string(nil), u.LikedStallIDs...)
	return &c, nil
}

func (m *memUsers) UpdateProfile(_ context.Context, id string, p userrepo.Profile, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.Name, u.Email, u.AvatarURL, u.UpdatedAt = p.Name, p.Email, p.AvatarURL, at
	}
	return nil
}

func (m *memUsers) AddLikedStall(_ context.Context, userID, stallID string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[userID]
	if !u.Likes(stallID) {
		u.LikedStallIDs = append(u.LikedStallIDs, stallID)
	}
	return nil
}

func (m *memUsers) RemoveLikedStall(_ context.Context, userID, stallID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[userID]
	kept := u.LikedStallIDs[:0]
	for _, id := range u.LikedStallIDs {
		if id != stallID {
			kept = append(kept, id)
		}
	}
	u.LikedStallIDs = kept
	return nil
}

type memStalls map[string]*stalldomain.Stall

func (m memStalls) Exists(_ context.Context, id string) (bool, error) {
	_, ok := m[id]
	return ok, nil
}

func (m memStalls) ListByIDs(_ context.Context, ids []string) ([]*stalldomain.Stall, error) {
	out := []*stalldomain.Stall{}
	for _, id := range ids {
		if s, ok := m[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func newTestProfileService() (*ProfileService, *memUsers) {
	users := &memUsers{users: map[string]*domain.User{
		"u1": {ID: "u1", Phone: "9999999999", Name: "Asha", Email: "asha@example.com", Role: domain.RoleCustomer},
	}}
	stalls := memStalls{
		"s1": {ID: "s1", Name: "Chaat Corner"},
		"s2": {ID: "s2", Name: "Momo Point"},
	}
	return NewProfileService(users, stalls, zerolog.Nop()), users
}

func strPtr(s string) *string { return &s }

func TestGetProfile(t *testing.T) {
	svc, _ := newTestProfileService()
	ctx := context.Background()

	v, err := svc.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if v.Name != "Asha" || v.Phone != "9999999999" || v.LikedStallIDs == nil {
		t.Errorf("GetProfile = %+v", v)
	}
	if _, err := svc.GetProfile(ctx, "nobody"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown user err = %v, want ErrUserNotFound", err)
	}
	if _, err := svc.GetProfile(ctx, ""); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("empty id err = %v, want ErrUserNotFound", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	svc, users := newTestProfileService()
	ctx := context.Background()

	v, err := svc.UpdateProfile(ctx, "u1", ProfileUpdate{Email: strPtr(" Asha.R@Example.com "), AvatarURL: strPtr("https://img/a.jpg")})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if v.Name != "Asha" {
		t.Errorf("Name = %q, nil update should keep it", v.Name)
	}
	if v.Email != "asha.r@example.com" || v.AvatarURL != "https://img/a.jpg" {
		t.Errorf("UpdateProfile = %+v", v)
	}
	if users.users["u1"].Email != "asha.r@example.com" {
		t.Error("update not persisted")
	}
	if users.users["u1"].Role != domain.RoleCustomer || users.users["u1"].Phone != "9999999999" {
		t.Error("phone and role must not change")
	}
}

func TestUpdateProfile_Invalid(t *testing.T) {
	svc, _ := newTestProfileService()
	ctx := context.Background()

	if _, err := svc.UpdateProfile(ctx, "u1", ProfileUpdate{Name: strPtr("  ")}); !errors.Is(err, ErrInvalidProfile) {
		t.Errorf("blank name err = %v", err)
	}
	if _, err := svc.UpdateProfile(ctx, "u1", ProfileUpdate{Email: strPtr("not-an-email")}); !errors.Is(err, ErrInvalidProfile) {
		t.Errorf("bad email err = %v", err)
	}
	if _, err := svc.UpdateProfile(ctx, "ghost", ProfileUpdate{}); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown user err = %v", err)
	}
}

func TestLikeUnlikeAndList(t *testing.T) {
	svc, _ := newTestProfileService()
	ctx := context.Background()

	for _, id := range []string{"s2", "s1", "s2"} {
		if err := svc.LikeStall(ctx, "u1", id); err != nil {
			t.Fatalf("LikeStall(%s): %v", id, err)
		}
	}
	if err := svc.LikeStall(ctx, "u1", "missing"); !errors.Is(err, ErrStallNotFound) {
		t.Errorf("unknown stall err = %v, want ErrStallNotFound", err)
	}

	liked, err := svc.ListLikedStalls(ctx, "u1")
	if err != nil {
		t.Fatalf("ListLikedStalls: %v", err)
	}
	if len(liked) != 2 || liked[0].ID != "s2" || liked[1].ID != "s1" {
		t.Fatalf("liked = %v, want [s2 s1]", liked)
	}

	if err := svc.UnlikeStall(ctx, "u1", "s2"); err != nil {
		t.Fatalf("UnlikeStall: %v", err)
	}
	if err := svc.UnlikeStall(ctx, "u1", "s2"); err != nil {
		t.Fatalf("UnlikeStall twice: %v", err)
	}
	liked, _ = svc.ListLikedStalls(ctx, "u1")
	if len(liked) != 1 || liked[0].ID != "s1" {
		t.Errorf("liked after unlike = %v", liked)
	}
}

func TestRepositoryErrorIsWrapped(t *testing.T) {
	svc, users := newTestProfileService()
	users.err = errors.New("connection reset")

	_, err := svc.GetProfile(context.Background(), "u1")
	if err == nil || errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v, want wrapped repository error", err)
	}
}
