// Package devotp keeps locally generated OTP codes by session handle so they can be read back at
// GET /dev/otp/{handle}. Only wired when OTP dev mode is enabled.
package devotp

import (
	"context"
	"sync"
	"time"
)

// Store holds plain codes by session handle for dev-only retrieval. Not used in production.
type Store interface {
	// Put stores code for handle until expiresAt.
	Put(ctx context.Context, handle, code string, expiresAt time.Time)
	// Get returns the code for handle if present and not expired.
	Get(ctx context.Context, handle string) (code string, ok bool)
	// Delete forgets handle.
	Delete(ctx context.Context, handle string)
}

type entry struct {
	code      string
	expiresAt time.Time
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	m    map[string]entry
	nowF func() time.Time
}

// NewMemoryStore returns a new in-memory dev OTP store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:    make(map[string]entry),
		nowF: func() time.Time { return time.Now().UTC() },
	}
}

// Put stores code for handle until expiresAt.
func (s *MemoryStore) Put(ctx context.Context, handle, code string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[handle] = entry{code: code, expiresAt: expiresAt}
}

// Get returns the code for handle if present and not expired.
func (s *MemoryStore) Get(ctx context.Context, handle string) (string, bool) {
	s.mu.RLock()
	e, ok := s.m[handle]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	if !e.expiresAt.After(s.nowF()) {
		s.Delete(ctx, handle)
		return "", false
	}
	return e.code, true
}

// Delete forgets handle.
func (s *MemoryStore) Delete(ctx context.Context, handle string) {
	s.mu.Lock()
	delete(s.m, handle)
	s.mu.Unlock()
}

// Sweep drops expired codes and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	now := s.nowF()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for h, e := range s.m {
		if !e.expiresAt.After(now) {
			delete(s.m, h)
			n++
		}
	}
	return n
}

// Len returns the number of stored codes, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}
