package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/duetapp/pairing-server-go/internal/config"
	"github.com/duetapp/pairing-server-go/internal/database"
	"github.com/duetapp/pairing-server-go/internal/handler"
	"github.com/duetapp/pairing-server-go/internal/jobs"
	"github.com/duetapp/pairing-server-go/internal/middleware"
	"github.com/duetapp/pairing-server-go/internal/redis"
	"github.com/duetapp/pairing-server-go/internal/repository"
	"github.com/duetapp/pairing-server-go/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	// The store is an explicit dependency: Postgres when configured,
	// in-memory maps otherwise. Offline mode loses all state on restart.
	var (
		partnershipRepo repository.PartnershipRepository
		profileRepo     repository.ProfileRepository
	)

	if cfg.OfflineMode() {
		log.Warn().Msg("DATABASE_URL not set: running with in-memory store (offline/demo mode)")
		partnershipRepo = repository.NewMemoryPartnershipRepository()
		memProfiles := repository.NewMemoryProfileRepository()
		profileRepo = memProfiles

		// The demo store starts empty, so seed accounts and print their
		// bearer tokens; nothing could authenticate otherwise.
		creds, err := repository.SeedDemoProfiles(context.Background(), memProfiles)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to seed demo profiles")
		}
		for _, cred := range creds {
			log.Info().
				Str("profileId", cred.ProfileID).
				Str("name", cred.DisplayName).
				Str("token", cred.Token).
				Msg("demo credential")
		}
	} else {
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
		if err := db.Ping(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to ping database")
		}
		cancel()
		log.Info().Msg("database connected")

		partnershipRepo = repository.NewPartnershipRepository(db)
		profileRepo = repository.NewProfileRepository(db)
	}

	var redeemRateLimit func(http.Handler) http.Handler
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		log.Info().Msg("redis connected")

		redeemRateLimit = middleware.NewRedisRateLimitMiddleware(redisClient.Client, cfg.RedeemRatePerMin).Handler
	} else {
		log.Warn().Msg("REDIS_URL not set: redeem rate limiting disabled")
	}

	pairingService := service.NewPairingService(partnershipRepo, profileRepo, cfg.PairingCodeTTL())
	pairingHandler := handler.NewPairingHandler(pairingService, redeemRateLimit)
	authMiddleware := middleware.NewAuthMiddleware(profileRepo)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/v1/pairing", func(r chi.Router) {
		r.Use(authMiddleware.Handler)
		r.Mount("/", pairingHandler.Routes())
	})

	cleanupJob := jobs.NewCleanupJob(partnershipRepo, config.CleanupJobInterval)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
