package repository

import (
	"context"
	"sync"
	"time"

	"github.com/Sambhav-gg/StreetBites/internal/otpintent/domain"
)

// MemoryRepository keeps intents in process memory. Used when no Redis is configured.
type MemoryRepository struct {
	mu   sync.Mutex
	m    map[string]*domain.Intent
	nowF func() time.Time
}

// NewMemoryRepository returns an empty in-memory intent store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		m:    make(map[string]*domain.Intent),
		nowF: func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a copy of i, replacing any intent with the same handle.
func (r *MemoryRepository) Create(ctx context.Context, i *domain.Intent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[i.SessionHandle] = i.Clone()
	return nil
}

// GetByHandle returns a copy of the live intent, or nil.
func (r *MemoryRepository) GetByHandle(ctx context.Context, handle string) (*domain.Intent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.liveLocked(handle)
	if i == nil {
		return nil, nil
	}
	return i.Clone(), nil
}

// Take removes and returns the live intent, or nil.
func (r *MemoryRepository) Take(ctx context.Context, handle string) (*domain.Intent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.liveLocked(handle)
	if i == nil {
		return nil, nil
	}
	delete(r.m, handle)
	return i, nil
}

// RecordFailedAttempt bumps the attempt counter of a live intent.
func (r *MemoryRepository) RecordFailedAttempt(ctx context.Context, handle string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.liveLocked(handle)
	if i == nil {
		return 0, nil
	}
	i.Attempts++
	return i.Attempts, nil
}

// Delete removes the intent if present.
func (r *MemoryRepository) Delete(ctx context.Context, handle string) error {
	r.mu.Lock()
	delete(r.m, handle)
	r.mu.Unlock()
	return nil
}

// Sweep drops expired intents and returns how many were removed.
func (r *MemoryRepository) Sweep() int {
	now := r.nowF()
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for h, i := range r.m {
		if i.Expired(now) {
			delete(r.m, h)
			n++
		}
	}
	return n
}

// liveLocked returns the stored intent or nil, evicting it if expired. Caller holds mu.
func (r *MemoryRepository) liveLocked(handle string) *domain.Intent {
	i, ok := r.m[handle]
	if !ok {
		return nil
	}
	if i.Expired(r.nowF()) {
		delete(r.m, handle)
		return nil
	}
	return i
}
