package main

import (
	"context"
	"crypto"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	analyticshandler "github.com/Sambhav-gg/StreetBites/internal/analytics/handler"
	"github.com/Sambhav-gg/StreetBites/internal/analytics/insights"
	analyticsrepo "github.com/Sambhav-gg/StreetBites/internal/analytics/repository"
	analyticsservice "github.com/Sambhav-gg/StreetBites/internal/analytics/service"
	"github.com/Sambhav-gg/StreetBites/internal/audit"
	auditrepo "github.com/Sambhav-gg/StreetBites/internal/audit/repository"
	"github.com/Sambhav-gg/StreetBites/internal/config"
	"github.com/Sambhav-gg/StreetBites/internal/db"
	"github.com/Sambhav-gg/StreetBites/internal/devotp"
	devotphandler "github.com/Sambhav-gg/StreetBites/internal/devotp/handler"
	healthhandler "github.com/Sambhav-gg/StreetBites/internal/health/handler"
	identityhandler "github.com/Sambhav-gg/StreetBites/internal/identity/handler"
	identityservice "github.com/Sambhav-gg/StreetBites/internal/identity/service"
	"github.com/Sambhav-gg/StreetBites/internal/logging"
	"github.com/Sambhav-gg/StreetBites/internal/metrics"
	"github.com/Sambhav-gg/StreetBites/internal/otp/provider"
	intentrepo "github.com/Sambhav-gg/StreetBites/internal/otpintent/repository"
	"github.com/Sambhav-gg/StreetBites/internal/policy/engine"
	reviewhandler "github.com/Sambhav-gg/StreetBites/internal/review/handler"
	reviewrepo "github.com/Sambhav-gg/StreetBites/internal/review/repository"
	reviewservice "github.com/Sambhav-gg/StreetBites/internal/review/service"
	"github.com/Sambhav-gg/StreetBites/internal/security"
	"github.com/Sambhav-gg/StreetBites/internal/server"
	"github.com/Sambhav-gg/StreetBites/internal/server/middleware"
	stallhandler "github.com/Sambhav-gg/StreetBites/internal/stall/handler"
	stallrepo "github.com/Sambhav-gg/StreetBites/internal/stall/repository"
	stallservice "github.com/Sambhav-gg/StreetBites/internal/stall/service"
	"github.com/Sambhav-gg/StreetBites/internal/telemetry"
	telemetryotel "github.com/Sambhav-gg/StreetBites/internal/telemetry/otel"
	"github.com/Sambhav-gg/StreetBites/internal/telemetry/producer"
	userhandler "github.com/Sambhav-gg/StreetBites/internal/user/handler"
	userrepo "github.com/Sambhav-gg/StreetBites/internal/user/repository"
	userservice "github.com/Sambhav-gg/StreetBites/internal/user/service"
)

const (
	serviceName     = "streetbites-api"
	shutdownTimeout = 15 * time.Second
	sweepSchedule   = "@every 1m"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logging.New("", "info")
		fallback.Fatal().Err(err).Msg("config")
	}
	log := logging.New(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otelProviders, err := telemetryotel.NewProviders(ctx, telemetryotel.Settings{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: serviceName,
		Environment: cfg.Env,
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("otel")
	}
	otelProviders.SetGlobal()

	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}
	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database")
	}
	defer database.Close()

	privKey, pubKey, err := loadKeys(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("jwt keys")
	}
	tokens := security.NewTokenProvider(privKey, pubKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())

	policy, err := engine.NewOPAEvaluator()
	if err != nil {
		log.Fatal().Err(err).Msg("policy")
	}

	var kafkaProducer producer.Producer
	var sinks telemetry.Multi
	if brokers := cfg.TelemetryKafkaBrokersList(); len(brokers) > 0 {
		kafkaProducer = producer.NewKafkaProducer(brokers, cfg.TelemetryKafkaTopic)
		sinks = append(sinks, kafkaProducer)
		log.Info().Strs("brokers", brokers).Str("topic", cfg.TelemetryKafkaTopic).Msg("telemetry: kafka enabled")
	}
	if otelProviders.Exporting {
		sinks = append(sinks, telemetryotel.NewEventEmitter(otelProviders.LoggerProvider))
	}
	var events telemetry.EventEmitter = telemetry.Nop{}
	if len(sinks) > 0 {
		events = telemetry.NewAsync(sinks, log)
	}

	var intents identityservice.IntentRepo
	var memIntents *intentrepo.MemoryRepository
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("redis")
		}
		intents = intentrepo.NewRedisRepository(rdb)
	} else {
		memIntents = intentrepo.NewMemoryRepository()
		intents = memIntents
		log.Warn().Msg("REDIS_ADDR not set; OTP intents are kept in memory")
	}

	var otpProvider provider.Provider
	var devStore *devotp.MemoryStore
	if cfg.OTPDevMode {
		devStore = devotp.NewMemoryStore()
		otpProvider = provider.NewDevProvider(devStore, cfg.IntentTTL())
		log.Warn().Msg("OTP dev mode: codes are served at GET /dev/otp/{handle}")
	} else {
		if cfg.OTPAPIKey == "" {
			log.Fatal().Msg("OTP_API_KEY is required unless OTP_DEV_MODE is set")
		}
		otpProvider = provider.NewTwoFactorClient(cfg.OTPAPIKey, cfg.OTPBaseURL)
	}

	users := userrepo.NewPostgresRepository(database)
	stallRepo := stallrepo.NewPostgresRepository(database)
	auditLogger := audit.NewLogger(auditrepo.NewPostgresRepository(database), middleware.ClientIP, log)

	authService := identityservice.NewAuthService(
		users, intents, otpProvider, tokens,
		cfg.IntentTTL(), cfg.OTPMaxVerifyAttempts,
		auditLogger, events, log,
	)
	stalls := stallservice.NewStallService(stallRepo, policy, events, log)
	profiles := userservice.NewProfileService(users, stalls, log)
	ratings := reviewservice.NewRatingService(reviewrepo.NewPostgresRepository(database), events, log)

	var generator insights.Generator
	if cfg.InsightsAPIKey != "" {
		generator = insights.NewOpenAIGenerator(cfg.InsightsAPIKey, cfg.InsightsBaseURL, cfg.InsightsModel, 0)
	} else {
		log.Info().Msg("INSIGHTS_API_KEY not set; vendor analytics will omit insights")
	}
	analytics := analyticsservice.NewAnalyticsService(analyticsrepo.NewPostgresRepository(database), generator, log)

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, log)

	deps := server.Deps{
		Tokens:         tokens,
		AuditLogger:    auditLogger,
		Events:         events,
		RateLimiter:    limiter,
		AllowedOrigins: cfg.AllowedOrigins(),
		Log:            log,
		Auth:           identityhandler.NewHandler(authService, cfg.IsProduction(), log),
		Profile:        userhandler.NewHandler(profiles, log),
		Stalls:         stallhandler.NewHandler(stalls, log),
		Analytics:      analyticshandler.NewHandler(analytics, log),
		Reviews:        reviewhandler.NewHandler(ratings, log),
		Health:         healthhandler.NewServer(database, policy, log),
	}
	if devStore != nil {
		deps.DevOTP = devotphandler.NewHandler(devStore)
	}

	sweeper := cron.New()
	if _, err := sweeper.AddFunc(sweepSchedule, func() {
		swept := 0
		if memIntents != nil {
			swept += memIntents.Sweep()
		}
		if devStore != nil {
			devStore.Sweep()
		}
		if limiter.Cleanup() {
			log.Info().Msg("rate limiter: client table reset")
		}
		metrics.RecordSwept(swept)
		if swept > 0 {
			log.Debug().Int("intents", swept).Msg("swept expired otp intents")
		}
	}); err != nil {
		log.Fatal().Err(err).Msg("cron")
	}
	sweeper.Start()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("env", cfg.Env).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		log.Error().Err(err).Msg("http server failed")
	}

	log.Info().Msg("shutting down http server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	<-sweeper.Stop().Done()

	if len(sinks) > 0 {
		// Let in-flight async emits finish before closing the sinks.
		time.Sleep(telemetry.ShutdownDrainDuration)
	}
	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			log.Warn().Err(err).Msg("kafka producer close")
		}
	}
	if err := otelProviders.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("otel shutdown")
	}
	log.Info().Msg("http server stopped")
}

// loadKeys returns the configured JWT key pair. Outside production an ephemeral key is generated
// when none is configured; sessions then do not survive a restart.
func loadKeys(cfg *config.Config, log zerolog.Logger) (privateKey crypto.Signer, publicKey crypto.PublicKey, err error) {
	if cfg.JWTPrivateKey != "" || cfg.JWTPublicKey != "" {
		return security.LoadKeyPair(cfg.JWTPrivateKey, cfg.JWTPublicKey)
	}
	if cfg.IsProduction() {
		return nil, nil, errors.New("JWT_PRIVATE_KEY and JWT_PUBLIC_KEY are required in production")
	}
	log.Warn().Msg("JWT keys not set; using an ephemeral key")
	return security.GenerateEphemeralKey()
}
