package domain

import (
	"strings"
	"time"

	userdomain "github.com/Sambhav-gg/StreetBites/internal/user/domain"
)

// Type says what a verified code will do: open a session for an existing account or create one.
type Type string

const (
	TypeLogin  Type = "login"
	TypeSignup Type = "signup"
)

// ParseType accepts "login" or "signup", case-insensitively.
func ParseType(s string) (Type, bool) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeLogin, TypeSignup:
		return t, true
	default:
		return "", false
	}
}

// SignupProfile is the account data collected before the code is sent.
type SignupProfile struct {
	Name  string          `json:"name"`
	Email string          `json:"email,omitempty"`
	Role  userdomain.Role `json:"role"`
}

// Intent is a pending login or signup, keyed by the provider's session handle.
// It is consumed (deleted) by the first successful verification.
type Intent struct {
	SessionHandle string         `json:"sessionHandle"`
	Phone         string         `json:"phone"`
	Type          Type           `json:"type"`
	Profile       *SignupProfile `json:"profile,omitempty"`
	Attempts      int            `json:"attempts"`
	CreatedAt     time.Time      `json:"createdAt"`
	ExpiresAt     time.Time      `json:"expiresAt"`
}

// Expired reports whether the intent is no longer usable at now.
func (i *Intent) Expired(now time.Time) bool {
	return !i.ExpiresAt.After(now)
}

// Clone returns a deep copy so stores never hand out shared state.
func (i *Intent) Clone() *Intent {
	c := *i
	if i.Profile != nil {
		p := *i.Profile
		c.Profile = &p
	}
	return &c
}
