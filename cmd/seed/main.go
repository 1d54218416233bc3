// seed inserts development sample data for local testing: a vendor, a customer, three stalls with
// menus, and one review. Idempotent: skips everything if the vendor phone already exists.
package main

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Sambhav-gg/StreetBites/internal/config"
	"github.com/Sambhav-gg/StreetBites/internal/db"
	"github.com/Sambhav-gg/StreetBites/internal/logging"
	reviewrepo "github.com/Sambhav-gg/StreetBites/internal/review/repository"
	reviewservice "github.com/Sambhav-gg/StreetBites/internal/review/service"
	stalldomain "github.com/Sambhav-gg/StreetBites/internal/stall/domain"
	stallrepo "github.com/Sambhav-gg/StreetBites/internal/stall/repository"
	userdomain "github.com/Sambhav-gg/StreetBites/internal/user/domain"
	userrepo "github.com/Sambhav-gg/StreetBites/internal/user/repository"
)

const (
	vendorPhone   = "9000000001"
	customerPhone = "9000000002"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logging.New("", "info")
		fallback.Fatal().Err(err).Msg("config")
	}
	log := logging.New(cfg.Env, cfg.LogLevel)
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db")
	}
	defer conn.Close()

	ctx := context.Background()
	users := userrepo.NewPostgresRepository(conn)
	stalls := stallrepo.NewPostgresRepository(conn)

	existing, err := users.GetByPhone(ctx, vendorPhone)
	if err != nil {
		log.Fatal().Err(err).Msg("seed check")
	}
	if existing != nil {
		log.Info().Str("phone", vendorPhone).Msg("seed already applied; skipping")
		return
	}

	now := time.Now().UTC()
	vendor := &userdomain.User{
		ID:        uuid.New().String(),
		Phone:     vendorPhone,
		Name:      "Ramesh Kumar",
		Role:      userdomain.RoleVendor,
		CreatedAt: now,
		UpdatedAt: now,
	}
	customer := &userdomain.User{
		ID:        uuid.New().String(),
		Phone:     customerPhone,
		Name:      "Priya Sharma",
		Email:     "priya@example.com",
		Role:      userdomain.RoleCustomer,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, u := range []*userdomain.User{vendor, customer} {
		if err := users.Create(ctx, u); err != nil {
			log.Fatal().Err(err).Str("phone", u.Phone).Msg("create user")
		}
	}

	seeded := []*stalldomain.Stall{
		{
			Name:        "Sharma Chaat Corner",
			Address:     "Shop 4, Lajpat Nagar Market",
			City:        "Delhi",
			Category:    "chaat",
			Location:    stalldomain.Location{Lat: 28.5677, Lng: 77.2433},
			OpeningTime: "16:00",
			ClosingTime: "22:30",
			Description: "Golgappe, aloo tikki and papdi chaat since 1998.",
			Menu: []stalldomain.MenuItem{
				{Name: "Golgappe (6 pcs)", Price: 30},
				{Name: "Aloo Tikki", Price: 50},
				{Name: "Papdi Chaat", Price: 60},
			},
		},
		{
			Name:        "Anna Dosa Cart",
			Address:     "Near Metro Gate 2, Rajiv Chowk",
			City:        "Delhi",
			Category:    "south indian",
			Location:    stalldomain.Location{Lat: 28.6328, Lng: 77.2197},
			OpeningTime: "07:00",
			ClosingTime: "13:00",
			Menu: []stalldomain.MenuItem{
				{Name: "Masala Dosa", Price: 70},
				{Name: "Idli Sambar", Price: 40},
			},
		},
		{
			Name:        "Fresh Squeeze",
			Address:     "Sector 18 Market",
			City:        "Noida",
			Category:    "Juices & Shakes",
			Location:    stalldomain.Location{Lat: 28.5708, Lng: 77.3261},
			OpeningTime: "10:00",
			ClosingTime: "21:00",
			Menu: []stalldomain.MenuItem{
				{Name: "Mosambi Juice", Price: 40},
				{Name: "Mango Shake", Price: 80},
			},
		},
	}
	for _, s := range seeded {
		s.ID = uuid.New().String()
		s.OwnerID = vendor.ID
		s.Phone = vendorPhone
		s.MainImageURL = "https://picsum.photos/seed/" + s.ID + "/800/600"
		s.CreatedAt = now
		s.UpdatedAt = now
		if err := s.Validate(); err != nil {
			log.Fatal().Err(err).Str("stall", s.Name).Msg("invalid seed stall")
		}
		if err := stalls.Create(ctx, s); err != nil {
			log.Fatal().Err(err).Str("stall", s.Name).Msg("create stall")
		}
	}

	ratings := reviewservice.NewRatingService(reviewrepo.NewPostgresRepository(conn), nil, log)
	if _, summary, err := ratings.AddReview(ctx, customer.ID, seeded[0].ID, 5, "Best golgappe in South Delhi."); err != nil {
		log.Fatal().Err(err).Msg("create review")
	} else {
		log.Info().Int("num_reviews", summary.NumReviews).Msg("seeded review")
	}

	log.Info().
		Str("vendor_phone", vendorPhone).
		Str("customer_phone", customerPhone).
		Int("stalls", len(seeded)).
		Msg("seed complete; log in with OTP_DEV_MODE=true and read the code from /dev/otp/{handle}")
}
