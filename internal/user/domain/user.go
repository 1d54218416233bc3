package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

var (
	// ErrInvalidRole is returned by ParseRole for anything outside the closed role set.
	ErrInvalidRole = errors.New("role must be customer or vendor")
	// ErrPhoneTaken is returned by repositories when another account already owns the phone.
	ErrPhoneTaken = errors.New("phone already registered")
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidEmail reports whether email looks like a mail address.
func ValidEmail(email string) bool { return emailPattern.MatchString(email) }

// Role is the closed set of account kinds.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
)

// ParseRole accepts "customer" (or the legacy "user") and "vendor", case-insensitively.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "customer", "user":
		return RoleCustomer, nil
	case "vendor":
		return RoleVendor, nil
	default:
		return "", ErrInvalidRole
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleVendor
}

// User is the core account entity. Phone is unique and immutable after creation.
type User struct {
	ID            string
	Phone         string
	Name          string
	Email         string
	Role          Role
	AvatarURL     string
	LikedStallIDs []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if strings.TrimSpace(u.Phone) == "" {
		return errors.New("phone is required")
	}
	if !u.Role.Valid() {
		return ErrInvalidRole
	}
	return nil
}

// IsVendor reports whether the user may own stalls.
func (u *User) IsVendor() bool { return u.Role == RoleVendor }

// Likes reports whether stallID is in the user's liked set.
func (u *User) Likes(stallID string) bool {
	for _, id := range u.LikedStallIDs {
		if id == stallID {
			return true
		}
	}
	return false
}

// PublicView is the account shape returned to clients.
type PublicView struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	Phone         string   `json:"phoneNumber"`
	Role          Role     `json:"role"`
	AvatarURL     string   `json:"profilePhoto"`
	LikedStallIDs []string `json:"likedStalls"`
}

// Public returns the client-facing view of u.
func (u *User) Public() PublicView {
	liked := u.LikedStallIDs
	if liked == nil {
		liked = []string{}
	}
	return PublicView{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Phone:         u.Phone,
		Role:          u.Role,
		AvatarURL:     u.AvatarURL,
		LikedStallIDs: liked,
	}
}
