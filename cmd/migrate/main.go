// migrate applies the embedded SQL migrations; go run ./cmd/migrate -direction up|down.
package main

import (
	"flag"

	"github.com/Sambhav-gg/StreetBites/internal/config"
	"github.com/Sambhav-gg/StreetBites/internal/db/migrate"
	"github.com/Sambhav-gg/StreetBites/internal/logging"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fallback := logging.New("", "info")
		fallback.Fatal().Err(err).Msg("config")
	}
	log := logging.New(cfg.Env, cfg.LogLevel)

	dir, err := migrate.ParseDirection(*direction)
	if err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	res, err := migrate.Run(cfg.DatabaseURL, dir)
	if err != nil {
		log.Fatal().Err(err).Str("direction", string(dir)).Msg("migrate")
	}
	ev := log.Info().Str("direction", string(dir)).Uint("version", res.Version).Bool("dirty", res.Dirty)
	if !res.Changed {
		ev.Msg("schema already at target version")
		return
	}
	ev.Msg("migrations applied")
}
