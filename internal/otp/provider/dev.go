package provider

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Sambhav-gg/StreetBites/internal/devotp"
	"github.com/Sambhav-gg/StreetBites/internal/otp"
)

// DevProvider generates codes locally instead of sending SMS. Codes are kept in a devotp.Store
// so they can be read back at GET /dev/otp/{handle}. Never used in production.
type DevProvider struct {
	store devotp.Store
	ttl   time.Duration
	nowF  func() time.Time
}

// NewDevProvider returns a provider that keeps codes in store for ttl.
func NewDevProvider(store devotp.Store, ttl time.Duration) *DevProvider {
	return &DevProvider{
		store: store,
		ttl:   ttl,
		nowF:  func() time.Time { return time.Now().UTC() },
	}
}

// SendCode generates a code and returns a fresh handle for it.
func (p *DevProvider) SendCode(ctx context.Context, phone string) (string, error) {
	code, err := otp.GenerateCode()
	if err != nil {
		return "", err
	}
	handle := uuid.NewString()
	p.store.Put(ctx, handle, code, p.nowF().Add(p.ttl))
	return handle, nil
}

// VerifyCode checks code against the stored one. A matched code is dropped.
func (p *DevProvider) VerifyCode(ctx context.Context, handle, code string) error {
	stored, ok := p.store.Get(ctx, handle)
	if !ok || !otp.CodeEqual(code, otp.HashCode(stored)) {
		return ErrRejected
	}
	p.store.Delete(ctx, handle)
	return nil
}
