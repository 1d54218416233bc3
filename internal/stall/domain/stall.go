package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// NearbyRadiusKm is the search radius for Nearby.
const NearbyRadiusKm = 5.0

var (
	ErrInvalidCategory = errors.New("unknown stall category")
	ErrInvalidMenu     = errors.New("every menu item needs a name and a positive price")
)

// Categories is the closed set of stall categories, in display order.
var Categories = []string{
	"snacks",
	"juice",
	"chaat",
	"south indian",
	"others",
	"North Indian",
	"Chinese",
	"Street Food",
	"Fast Food",
	"Snacks & Chaat",
	"Beverages",
	"Tea & Coffee",
	"Juices & Shakes",
	"Bakery",
	"Sweets & Desserts",
	"Fusion Food",
	"Tandoori Items",
	"Breakfast Special",
	"Healthy / Diet Food",
	"Thali",
	"Rolls & Wraps",
	"Rice & Biryani",
	"Paratha / Roti Items",
}

// ParseCategory matches s case-insensitively against Categories and returns the canonical spelling.
func ParseCategory(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(c, s) {
			return c, nil
		}
	}
	return "", ErrInvalidCategory
}

// Location is a WGS84 point.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate checks coordinate ranges.
func (l Location) Validate() error {
	if math.IsNaN(l.Lat) || math.IsNaN(l.Lng) || l.Lat < -90 || l.Lat > 90 || l.Lng < -180 || l.Lng > 180 {
		return errors.New("location is out of range")
	}
	return nil
}

// MenuItem is one dish and its price in rupees.
type MenuItem struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// ValidateMenu trims item names and rejects blank names or non-positive prices.
func ValidateMenu(items []MenuItem) ([]MenuItem, error) {
	out := make([]MenuItem, 0, len(items))
	for _, it := range items {
		name := strings.TrimSpace(it.Name)
		if name == "" || !(it.Price > 0) || math.IsInf(it.Price, 0) {
			return nil, ErrInvalidMenu
		}
		out = append(out, MenuItem{Name: name, Price: it.Price})
	}
	return out, nil
}

// Stall is a vendor's food stall. NumReviews and AverageRating are maintained by the review
// aggregator; AverageRating is nil until the first review.
type Stall struct {
	ID             string     `json:"id"`
	OwnerID        string     `json:"owner"`
	Name           string     `json:"stallName"`
	Address        string     `json:"address"`
	City           string     `json:"city"`
	Category       string     `json:"category"`
	Location       Location   `json:"location"`
	OpeningTime    string     `json:"openingTime"`
	ClosingTime    string     `json:"closingTime"`
	Description    string     `json:"description"`
	Phone          string     `json:"phoneNumber"`
	MainImageURL   string     `json:"mainImage"`
	OtherImageURLs []string   `json:"otherImages"`
	Menu           []MenuItem `json:"menu"`
	NumReviews     int        `json:"numReviews"`
	AverageRating  *float64   `json:"averageRating"`
	Impressions    int        `json:"impressions"`
	// DistanceKm is set only by Nearby.
	DistanceKm *float64  `json:"distance,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Validate validates the stall for persistence. Returns an error describing the first validation failure.
func (s *Stall) Validate() error {
	if strings.TrimSpace(s.OwnerID) == "" {
		return errors.New("owner is required")
	}
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("stall name is required")
	}
	if strings.TrimSpace(s.Address) == "" {
		return errors.New("address is required")
	}
	if strings.TrimSpace(s.City) == "" {
		return errors.New("city is required")
	}
	if _, err := ParseCategory(s.Category); err != nil {
		return err
	}
	if err := s.Location.Validate(); err != nil {
		return err
	}
	if err := validateClock(s.OpeningTime); err != nil {
		return fmt.Errorf("opening time: %w", err)
	}
	if err := validateClock(s.ClosingTime); err != nil {
		return fmt.Errorf("closing time: %w", err)
	}
	if strings.TrimSpace(s.MainImageURL) == "" {
		return errors.New("main image is required")
	}
	return nil
}

// IsOwnedBy reports whether userID owns the stall.
func (s *Stall) IsOwnedBy(userID string) bool {
	return userID != "" && s.OwnerID == userID
}

func validateClock(v string) error {
	if _, err := time.Parse("15:04", strings.TrimSpace(v)); err != nil {
		return errors.New(`must be "HH:MM"`)
	}
	return nil
}
