// Package provider sends and checks one-time codes through an external OTP service.
package provider

import (
	"context"
	"errors"
)

var (
	// ErrRejected is returned by VerifyCode when the provider says the code does not match
	// or has expired on its side.
	ErrRejected = errors.New("otp provider: code rejected")
	// ErrUnavailable marks transport failures and provider-side errors. Retryable.
	ErrUnavailable = errors.New("otp provider: unavailable")
)

// Provider delivers a code to a phone and later checks a code against the provider's session.
type Provider interface {
	// SendCode delivers a code to phone and returns the provider's session handle.
	SendCode(ctx context.Context, phone string) (handle string, err error)
	// VerifyCode returns nil if code matches the session, ErrRejected if it does not,
	// and any other error when the provider could not be asked.
	VerifyCode(ctx context.Context, handle, code string) error
}
