// Command server runs the storefront trust-and-access core: Google OAuth
// login, revocable database-backed sessions, the authorization gate, rate
// limiting, and media upload endpoints backed by S3-compatible storage.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ieraasyl/StorefrontCore/internal/database"
	"github.com/ieraasyl/StorefrontCore/internal/handlers"
	"github.com/ieraasyl/StorefrontCore/internal/middleware"
	"github.com/ieraasyl/StorefrontCore/internal/ratelimit"
	"github.com/ieraasyl/StorefrontCore/internal/services"
	"github.com/ieraasyl/StorefrontCore/internal/storage"
	"github.com/ieraasyl/StorefrontCore/pkg/cache"
	"github.com/ieraasyl/StorefrontCore/pkg/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const sessionSweepInterval = time.Hour

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if !cfg.Server.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	postgres, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer postgres.Close()

	migrationCtx, cancelMigration := context.WithTimeout(context.Background(), 30*time.Second)
	if err := postgres.RunMigrations(migrationCtx, database.Schema); err != nil {
		cancelMigration()
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}
	cancelMigration()

	redisDB, err := database.NewRedisDB(&cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisDB.Close()

	userCache := cache.NewUserCache(cache.NewCache(redisDB.Client()), cfg.Cache.UserTTL, cfg.Cache.Enabled)

	tokenSvc := services.NewTokenService(&cfg.Session)
	sessionSvc := services.NewSessionService(tokenSvc, postgres, cfg.Session.TTL)
	sessionSvc.SetFailureRecorder(middleware.RecordTokenFailure)
	oauthSvc := services.NewOAuthService(&cfg.OAuth, postgres)
	gate := services.NewAuthorizationGate(sessionSvc, postgres, userCache)

	storageClient, err := storage.NewClient(&cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}

	// Counters live in Redis so all instances share one window per
	// identifier.
	limitStore := ratelimit.NewRedisStore(redisDB)

	authHandler := handlers.NewAuthHandler(oauthSvc, sessionSvc, gate, cfg)
	uploadHandler := handlers.NewUploadHandler(gate, limitStore, storageClient, cfg)
	healthHandler := handlers.NewHealthHandler(postgres, redisDB)
	limiter := middleware.NewRateLimiter(limitStore)

	router := chi.NewRouter()
	router.Use(middleware.Logger())
	router.Use(middleware.Recoverer())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	router.Use(middleware.Metrics())

	router.Get("/health", healthHandler.Health)
	router.Get("/ready", healthHandler.Ready)
	router.Handle("/metrics", middleware.MetricsHandler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.SessionToken(cfg.Session.CookieName))

		r.Route("/auth", func(r chi.Router) {
			r.Use(limiter.Limit("auth", cfg.RateLimit.Auth))
			r.Get("/google/login", authHandler.GoogleLogin)
			r.Get("/google/callback", authHandler.GoogleCallback)
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
		})

		// Per-user upload throttling happens inside the handlers, after the
		// gate has resolved the user.
		r.Route("/uploads", func(r chi.Router) {
			r.Post("/gallery", uploadHandler.GalleryUpload)
			r.Post("/products", uploadHandler.ProductUpload)
			r.Post("/reviews", uploadHandler.ReviewUpload)
			r.Delete("/", uploadHandler.DeleteMedia)
		})
	})

	sweeperCtx, stopSweeper := context.WithCancel(context.Background())
	go runSessionSweeper(sweeperCtx, sessionSvc, postgres)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().
			Str("port", cfg.Server.Port).
			Str("environment", cfg.Server.Environment).
			Msg("Starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	stopSweeper()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// runSessionSweeper periodically deletes expired session rows and updates
// the active-sessions gauge. Lookups already exclude expired rows, so the
// sweep only reclaims space.
func runSessionSweeper(ctx context.Context, sessions *services.SessionService, postgres *database.PostgresDB) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			if err := sessions.SweepExpired(sweepCtx); err != nil {
				log.Error().Err(err).Msg("Session sweep failed")
			}
			if count, err := postgres.CountActiveSessions(sweepCtx); err == nil {
				middleware.SetActiveSessions(float64(count))
			}
			cancel()
		}
	}
}
