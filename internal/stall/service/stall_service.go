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

	"github.com/Sambhav-gg/StreetBites/internal/policy/engine"
	"github.com/Sambhav-gg/StreetBites/internal/stall/domain"
	stallrepo "github.com/Sambhav-gg/StreetBites/internal/stall/repository"
	"github.com/Sambhav-gg/StreetBites/internal/telemetry"
	telemetrydomain "github.com/Sambhav-gg/StreetBites/internal/telemetry/domain"
)

// Sentinel errors for stall service; handler maps them to HTTP statuses.
var (
	ErrStallNotFound      = errors.New("stall not found")
	ErrForbidden          = errors.New("not allowed to modify this stall")
	ErrDuplicateStallName = errors.New("you already have a stall with this name")
	ErrInvalidStall       = errors.New("invalid stall")
	ErrInvalidMenu        = domain.ErrInvalidMenu
)

const eventSource = "stall"

var tracer = otel.Tracer("github.com/Sambhav-gg/StreetBites/internal/stall/service")

// Actor is the authenticated caller.
type Actor struct {
	UserID string
	Role   string
}

// StallInput is the vendor-editable part of a stall. On update, empty MainImageURL and
// OtherImageURLs keep the stored images and an empty City keeps the stored city.
type StallInput struct {
	Name           string
	Address        string
	City           string
	Category       string
	Lat            float64
	Lng            float64
	OpeningTime    string
	ClosingTime    string
	Description    string
	Phone          string
	MainImageURL   string
	OtherImageURLs []string
	Menu           []domain.MenuItem
}

// StallService manages stalls. Mutations are authorized by the policy evaluator.
type StallService struct {
	repo   stallrepo.Repository
	policy engine.Evaluator
	events telemetry.EventEmitter
	log    zerolog.Logger
	nowF   func() time.Time
}

// NewStallService returns a StallService. events may be nil.
func NewStallService(repo stallrepo.Repository, policy engine.Evaluator, events telemetry.EventEmitter, log zerolog.Logger) *StallService {
	if events == nil {
		events = telemetry.Nop{}
	}
	return &StallService{
		repo:   repo,
		policy: policy,
		events: events,
		log:    log,
		nowF:   func() time.Time { return time.Now().UTC() },
	}
}

// Create adds a stall owned by the actor. Only vendors may create stalls; names are unique per owner.
func (s *StallService) Create(ctx context.Context, actor Actor, in StallInput) (*domain.Stall, error) {
	ctx, span := tracer.Start(ctx, "StallService.Create")
	defer span.End()

	if err := s.authorize(ctx, engine.ActionCreate, actor, ""); err != nil {
		return nil, err
	}
	now := s.nowF()
	st := &domain.Stall{
		ID:        uuid.New().String(),
		OwnerID:   actor.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyInput(st, in)
	if st.OtherImageURLs == nil {
		st.OtherImageURLs = []string{}
	}
	menu, err := domain.ValidateMenu(in.Menu)
	if err != nil {
		return nil, err
	}
	st.Menu = menu
	if err := s.validate(st); err != nil {
		return nil, err
	}
	exists, err := s.repo.ExistsByOwnerAndName(ctx, actor.UserID, st.Name)
	if err != nil {
		return nil, fmt.Errorf("check stall name: %w", err)
	}
	if exists {
		return nil, ErrDuplicateStallName
	}
	if err := s.repo.Create(ctx, st); err != nil {
		if errors.Is(err, stallrepo.ErrDuplicateName) {
			return nil, ErrDuplicateStallName
		}
		return nil, fmt.Errorf("create stall: %w", err)
	}
	s.emit(ctx, telemetrydomain.NewEvent(telemetrydomain.EventStallCreated, eventSource,
		map[string]string{"city": st.City, "category": st.Category}).WithUser(actor.UserID).WithStall(st.ID))
	return st, nil
}

// Update overwrites the editable fields of a stall the actor owns.
func (s *StallService) Update(ctx context.Context, actor Actor, id string, in StallInput) (*domain.Stall, error) {
	ctx, span := tracer.Start(ctx, "StallService.Update")
	defer span.End()

	st, err := s.loadForMutation(ctx, engine.ActionUpdate, actor, id)
	if err != nil {
		return nil, err
	}
	applyInput(st, in)
	st.UpdatedAt = s.nowF()
	if err := s.validate(st); err != nil {
		return nil, err
	}
	ok, err := s.repo.Update(ctx, st)
	if err != nil {
		if errors.Is(err, stallrepo.ErrDuplicateName) {
			return nil, ErrDuplicateStallName
		}
		return nil, fmt.Errorf("update stall: %w", err)
	}
	if !ok {
		return nil, ErrStallNotFound
	}
	return st, nil
}

// UpdateMenu replaces the menu of a stall the actor owns.
func (s *StallService) UpdateMenu(ctx context.Context, actor Actor, id string, items []domain.MenuItem) ([]domain.MenuItem, error) {
	menu, err := domain.ValidateMenu(items)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadForMutation(ctx, engine.ActionUpdateMenu, actor, id); err != nil {
		return nil, err
	}
	ok, err := s.repo.UpdateMenu(ctx, id, menu, s.nowF())
	if err != nil {
		return nil, fmt.Errorf("update menu: %w", err)
	}
	if !ok {
		return nil, ErrStallNotFound
	}
	return menu, nil
}

// Delete removes a stall the actor owns.
func (s *StallService) Delete(ctx context.Context, actor Actor, id string) error {
	if _, err := s.loadForMutation(ctx, engine.ActionDelete, actor, id); err != nil {
		return err
	}
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete stall: %w", err)
	}
	if !ok {
		return ErrStallNotFound
	}
	return nil
}

// Get returns a stall by id.
func (s *StallService) Get(ctx context.Context, id string) (*domain.Stall, error) {
	st, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("get stall: %w", err)
	}
	if st == nil {
		return nil, ErrStallNotFound
	}
	return st, nil
}

// ListAll returns every stall.
func (s *StallService) ListAll(ctx context.Context) ([]*domain.Stall, error) {
	return s.repo.ListAll(ctx)
}

// ListByOwner returns the owner's stalls.
func (s *StallService) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Stall, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// MyStall returns the owner's most recent stall.
func (s *StallService) MyStall(ctx context.Context, ownerID string) (*domain.Stall, error) {
	list, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrStallNotFound
	}
	return list[0], nil
}

// ListByIDs returns the stalls among ids that still exist, in the order of ids.
func (s *StallService) ListByIDs(ctx context.Context, ids []string) ([]*domain.Stall, error) {
	list, err := s.repo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*domain.Stall, len(list))
	for _, st := range list {
		byID[st.ID] = st
	}
	out := make([]*domain.Stall, 0, len(list))
	for _, id := range ids {
		if st, ok := byID[id]; ok {
			out = append(out, st)
			delete(byID, id)
		}
	}
	return out, nil
}

// Exists reports whether a stall with id exists.
func (s *StallService) Exists(ctx context.Context, id string) (bool, error) {
	st, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return st != nil, nil
}

// Search matches dish against stall and menu item names; city optionally filters exactly.
func (s *StallService) Search(ctx context.Context, dish, city string) ([]*domain.Stall, error) {
	return s.repo.Search(ctx, dish, city)
}

// TopRated returns stalls by average rating, unrated last.
func (s *StallService) TopRated(ctx context.Context) ([]*domain.Stall, error) {
	return s.repo.TopRated(ctx, 0)
}

// Nearby returns stalls within NearbyRadiusKm of (lat, lng), nearest first.
func (s *StallService) Nearby(ctx context.Context, lat, lng float64) ([]*domain.Stall, error) {
	at := domain.Location{Lat: lat, Lng: lng}
	if err := at.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStall, err)
	}
	return s.repo.Nearby(ctx, at, domain.NearbyRadiusKm)
}

// ByCity returns stalls whose city contains city, case-insensitively.
func (s *StallService) ByCity(ctx context.Context, city string) ([]*domain.Stall, error) {
	if strings.TrimSpace(city) == "" {
		return nil, fmt.Errorf("%w: city is required", ErrInvalidStall)
	}
	return s.repo.ByCity(ctx, city)
}

// AddImpression records that a stall was viewed.
func (s *StallService) AddImpression(ctx context.Context, id, viewerID string) error {
	ok, err := s.repo.AddImpression(ctx, id, s.nowF())
	if err != nil {
		return fmt.Errorf("add impression: %w", err)
	}
	if !ok {
		return ErrStallNotFound
	}
	s.emit(ctx, telemetrydomain.NewEvent(telemetrydomain.EventStallImpression, eventSource, nil).WithUser(viewerID).WithStall(id))
	return nil
}

func (s *StallService) loadForMutation(ctx context.Context, action string, actor Actor, id string) (*domain.Stall, error) {
	st, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, action, actor, st.OwnerID); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *StallService) authorize(ctx context.Context, action string, actor Actor, ownerID string) error {
	ok, err := s.policy.Allow(ctx, engine.Request{
		Action:    action,
		ActorID:   actor.UserID,
		ActorRole: actor.Role,
		OwnerID:   ownerID,
	})
	if err != nil {
		return fmt.Errorf("authorize %s: %w", action, err)
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

func (s *StallService) validate(st *domain.Stall) error {
	if err := st.Validate(); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidStall, err)
	}
	cat, _ := domain.ParseCategory(st.Category)
	st.Category = cat
	return nil
}

func applyInput(st *domain.Stall, in StallInput) {
	st.Name = strings.TrimSpace(in.Name)
	st.Address = strings.TrimSpace(in.Address)
	if c := strings.TrimSpace(in.City); c != "" || st.City == "" {
		st.City = c
	}
	st.Category = strings.TrimSpace(in.Category)
	st.Location = domain.Location{Lat: in.Lat, Lng: in.Lng}
	st.OpeningTime = strings.TrimSpace(in.OpeningTime)
	st.ClosingTime = strings.TrimSpace(in.ClosingTime)
	st.Description = strings.TrimSpace(in.Description)
	st.Phone = strings.TrimSpace(in.Phone)
	if u := strings.TrimSpace(in.MainImageURL); u != "" {
		st.MainImageURL = u
	}
	if len(in.OtherImageURLs) > 0 {
		st.OtherImageURLs = in.OtherImageURLs
	}
}

func (s *StallService) emit(ctx context.Context, e *telemetrydomain.Event) {
	if err := s.events.Emit(ctx, e); err != nil {
		s.log.Debug().Err(err).Str("event", e.EventType).Msg("telemetry: emit failed")
	}
}
