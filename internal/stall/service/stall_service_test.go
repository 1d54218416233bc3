package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sambhav-gg/StreetBites/internal/policy/engine"
	"github.com/Sambhav-gg/StreetBites/internal/stall/domain"
	stallrepo "github.com/Sambhav-gg/StreetBites/internal/stall/repository"
	telemetrydomain "github.com/Sambhav-gg/StreetBites/internal/telemetry/domain"
)

type memStallRepo struct {
	mu          sync.Mutex
	stalls      map[string]*domain.Stall
	impressions map[string]int
}

func newMemStallRepo() *memStallRepo {
	return &memStallRepo{stalls: map[string]*domain.Stall{}, impressions: map[string]int{}}
}

func (r *memStallRepo) copyOf(s *domain.Stall) *domain.Stall {
	c := *s
	c.Impressions = r.impressions[s.ID]
	return &c
}

func (r *memStallRepo) filter(keep func(*domain.Stall) bool) []*domain.Stall {
	out := []*domain.Stall{}
	for _, s := range r.stalls {
		if keep(s) {
			out = append(out, r.copyOf(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *memStallRepo) GetByID(_ context.Context, id string) (*domain.Stall, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stalls[id]
	if !ok {
		return nil, nil
	}
	return r.copyOf(s), nil
}

func (r *memStallRepo) ListAll(context.Context) ([]*domain.Stall, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(*domain.Stall) bool { return true }), nil
}

func (r *memStallRepo) ListByOwner(_ context.Context, ownerID string) ([]*domain.Stall, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(s *domain.Stall) bool { return s.OwnerID == ownerID }), nil
}

func (r *memStallRepo) ListByIDs(_ context.Context, ids []string) ([]*domain.Stall, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	return r.filter(func(s *domain.Stall) bool { return want[s.ID] }), nil
}

func (r *memStallRepo) ExistsByOwnerAndName(_ context.Context, ownerID, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.stalls {
		if s.OwnerID == ownerID && s.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (r *memStallRepo) Create(_ context.Context, s *domain.Stall) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.stalls {
		if o.OwnerID == s.OwnerID && o.Name == s.Name {
			return stallrepo.ErrDuplicateName
		}
	}
	c := *s
	r.stalls[s.ID] = &c
	return nil
}

func (r *memStallRepo) Update(_ context.Context, s *domain.Stall) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stalls[s.ID]; !ok {
		return false, nil
	}
	for _, o := range r.stalls {
		if o.ID != s.ID && o.OwnerID == s.OwnerID && o.Name == s.Name {
			return false, stallrepo.ErrDuplicateName
		}
	}
	c := *s
	r.stalls[s.ID] = &c
	return true, nil
}

func (r *memStallRepo) UpdateMenu(_ context.Context, id string, menu []domain.MenuItem, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stalls[id]
	if !ok {
		return false, nil
	}
	s.Menu = menu
	s.UpdatedAt = at
	return true, nil
}

func (r *memStallRepo) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stalls[id]; !ok {
		return false, nil
	}
	delete(r.stalls, id)
	return true, nil
}

func (r *memStallRepo) Search(_ context.Context, dish, city string) ([]*domain.Stall, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dish = strings.ToLower(strings.TrimSpace(dish))
	return r.filter(func(s *domain.Stall) bool {
		if city != "" && s.City != city {
			return false
		}
		if dish == "" || strings.Contains(strings.ToLower(s.Name), dish) {
			return true
		}
		for _, m := range s.Menu {
			if strings.Contains(strings.ToLower(m.Name), dish) {
				return true
			}
		}
		return false
	}), nil
}

func (r *memStallRepo) TopRated(context.Context, int) ([]*domain.Stall, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(*domain.Stall) bool { return true }), nil
}

func (r *memStallRepo) Nearby(_ context.Context, at domain.Location, _ float64) ([]*domain.Stall, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(s *domain.Stall) bool { return s.Location == at }), nil
}

func (r *memStallRepo) ByCity(_ context.Context, city string) ([]*domain.Stall, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(s *domain.Stall) bool {
		return strings.Contains(strings.ToLower(s.City), strings.ToLower(city))
	}), nil
}

func (r *memStallRepo) AddImpression(_ context.Context, id string, _ time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stalls[id]; !ok {
		return false, nil
	}
	r.impressions[id]++
	return true, nil
}

type memEmitter struct {
	mu     sync.Mutex
	events []*telemetrydomain.Event
}

func (m *memEmitter) Emit(_ context.Context, e *telemetrydomain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memEmitter) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.EventType)
	}
	return out
}

type failingPolicy struct{}

func (failingPolicy) Allow(context.Context, engine.Request) (bool, error) {
	return false, errors.New("policy offline")
}

var (
	vendorA  = Actor{UserID: "vendor-a", Role: "vendor"}
	vendorB  = Actor{UserID: "vendor-b", Role: "vendor"}
	customer = Actor{UserID: "cust-1", Role: "customer"}
)

func validInput(name string) StallInput {
	return StallInput{
		Name:         name,
		Address:      "MI Road",
		City:         "Jaipur",
		Category:     "chaat",
		Lat:          26.9,
		Lng:          75.8,
		OpeningTime:  "10:00",
		ClosingTime:  "22:30",
		Phone:        "9999999999",
		MainImageURL: "https://img.example/main.jpg",
		Menu:         []domain.MenuItem{{Name: " Pani Puri ", Price: 30}},
	}
}

func newTestService(t *testing.T) (*StallService, *memStallRepo, *memEmitter) {
	t.Helper()
	eval, err := engine.NewOPAEvaluator()
	require.NoError(t, err)
	repo := newMemStallRepo()
	events := &memEmitter{}
	return NewStallService(repo, eval, events, zerolog.Nop()), repo, events
}

func TestCreate_VendorCreatesStall(t *testing.T) {
	svc, _, events := newTestService(t)
	ctx := context.Background()

	in := validInput("Sharma Chaat")
	in.Category = "CHAAT"
	st, err := svc.Create(ctx, vendorA, in)
	require.NoError(t, err)
	assert.NotEmpty(t, st.ID)
	assert.Equal(t, "vendor-a", st.OwnerID)
	assert.Equal(t, "chaat", st.Category)
	assert.Equal(t, []domain.MenuItem{{Name: "Pani Puri", Price: 30}}, st.Menu)
	assert.NotNil(t, st.OtherImageURLs)
	assert.Nil(t, st.AverageRating)
	assert.Equal(t, []string{telemetrydomain.EventStallCreated}, events.types())

	got, err := svc.Get(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sharma Chaat", got.Name)
}

func TestCreate_CustomerForbidden(t *testing.T) {
	svc, repo, _ := newTestService(t)
	_, err := svc.Create(context.Background(), customer, validInput("Nope"))
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Empty(t, repo.stalls)
}

func TestCreate_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	cases := map[string]func(*StallInput){
		"missing name":     func(in *StallInput) { in.Name = " " },
		"unknown category": func(in *StallInput) { in.Category = "sushi" },
		"bad opening time": func(in *StallInput) { in.OpeningTime = "25:00" },
		"missing image":    func(in *StallInput) { in.MainImageURL = "" },
		"bad latitude":     func(in *StallInput) { in.Lat = 120 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validInput("Stall " + name)
			mutate(&in)
			_, err := svc.Create(ctx, vendorA, in)
			assert.ErrorIs(t, err, ErrInvalidStall)
		})
	}

	in := validInput("Bad Menu")
	in.Menu = []domain.MenuItem{{Name: "Tea", Price: 0}}
	_, err := svc.Create(ctx, vendorA, in)
	assert.ErrorIs(t, err, ErrInvalidMenu)
}

func TestCreate_DuplicateNamePerOwner(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, vendorA, validInput("Kachori Corner"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, vendorA, validInput("Kachori Corner"))
	assert.ErrorIs(t, err, ErrDuplicateStallName)

	_, err = svc.Create(ctx, vendorB, validInput("Kachori Corner"))
	assert.NoError(t, err, "another vendor may reuse the name")
}

func TestUpdate_OwnerOnly(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	st, err := svc.Create(ctx, vendorA, validInput("Lassiwala"))
	require.NoError(t, err)

	in := validInput("Lassiwala Original")
	in.City = ""
	in.MainImageURL = ""
	_, err = svc.Update(ctx, vendorB, st.ID, in)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Update(ctx, customer, st.ID, in)
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := svc.Update(ctx, vendorA, st.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Lassiwala Original", updated.Name)
	assert.Equal(t, "Jaipur", updated.City, "empty city keeps the stored one")
	assert.Equal(t, "https://img.example/main.jpg", updated.MainImageURL)

	_, err = svc.Update(ctx, vendorA, "missing", in)
	assert.ErrorIs(t, err, ErrStallNotFound)
}

func TestUpdateMenu(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	st, err := svc.Create(ctx, vendorA, validInput("Momo Point"))
	require.NoError(t, err)

	menu, err := svc.UpdateMenu(ctx, vendorA, st.ID, []domain.MenuItem{{Name: "Veg Momo", Price: 60}, {Name: "Paneer Momo", Price: 80}})
	require.NoError(t, err)
	assert.Len(t, menu, 2)

	got, err := svc.Get(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, menu, got.Menu)

	_, err = svc.UpdateMenu(ctx, vendorB, st.ID, menu)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.UpdateMenu(ctx, vendorA, st.ID, []domain.MenuItem{{Name: "", Price: 10}})
	assert.ErrorIs(t, err, ErrInvalidMenu)
}

func TestDelete(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	st, err := svc.Create(ctx, vendorA, validInput("Chai Tapri"))
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, vendorB, st.ID), ErrForbidden)
	require.NoError(t, svc.Delete(ctx, vendorA, st.ID))
	assert.ErrorIs(t, svc.Delete(ctx, vendorA, st.ID), ErrStallNotFound)
}

func TestPolicyErrorDenies(t *testing.T) {
	svc := NewStallService(newMemStallRepo(), failingPolicy{}, nil, zerolog.Nop())
	_, err := svc.Create(context.Background(), vendorA, validInput("X"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrForbidden)
	assert.Contains(t, err.Error(), "policy offline")
}

func TestMyStallAndListByIDs(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.MyStall(ctx, vendorA.UserID)
	assert.ErrorIs(t, err, ErrStallNotFound)

	first, err := svc.Create(ctx, vendorA, validInput("First"))
	require.NoError(t, err)
	svc.nowF = func() time.Time { return time.Now().UTC().Add(time.Minute) }
	second, err := svc.Create(ctx, vendorA, validInput("Second"))
	require.NoError(t, err)

	mine, err := svc.MyStall(ctx, vendorA.UserID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, mine.ID)

	list, err := svc.ListByIDs(ctx, []string{second.ID, "gone", first.ID})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestSearchAndByCity(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, vendorA, validInput("Golgappa House"))
	require.NoError(t, err)

	found, err := svc.Search(ctx, "pani", "Jaipur")
	require.NoError(t, err)
	assert.Len(t, found, 1)
	found, err = svc.Search(ctx, "pani", "Delhi")
	require.NoError(t, err)
	assert.Empty(t, found)

	_, err = svc.ByCity(ctx, "  ")
	assert.ErrorIs(t, err, ErrInvalidStall)
	byCity, err := svc.ByCity(ctx, "jai")
	require.NoError(t, err)
	assert.Len(t, byCity, 1)
}

func TestNearby_RejectsBadCoordinates(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Nearby(context.Background(), 95, 10)
	assert.ErrorIs(t, err, ErrInvalidStall)
}

func TestAddImpression(t *testing.T) {
	svc, _, events := newTestService(t)
	ctx := context.Background()
	st, err := svc.Create(ctx, vendorA, validInput("Poha Stop"))
	require.NoError(t, err)

	require.NoError(t, svc.AddImpression(ctx, st.ID, "cust-1"))
	require.NoError(t, svc.AddImpression(ctx, st.ID, ""))
	assert.ErrorIs(t, svc.AddImpression(ctx, "missing", ""), ErrStallNotFound)

	got, err := svc.Get(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Impressions)
	assert.Equal(t, []string{
		telemetrydomain.EventStallCreated,
		telemetrydomain.EventStallImpression,
		telemetrydomain.EventStallImpression,
	}, events.types())
}
