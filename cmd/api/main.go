package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/contestbox/reward-engine/internal/config"
	"github.com/contestbox/reward-engine/internal/engine/claim"
	"github.com/contestbox/reward-engine/internal/engine/configstore"
	"github.com/contestbox/reward-engine/internal/engine/fulfillment"
	"github.com/contestbox/reward-engine/internal/engine/stock"
	"github.com/contestbox/reward-engine/internal/handler"
	"github.com/contestbox/reward-engine/internal/repository"
	"github.com/contestbox/reward-engine/internal/service"
	"github.com/contestbox/reward-engine/internal/validator"
	"github.com/contestbox/reward-engine/pkg/database"
)

func main() {
	// Load configuration first
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize zerolog based on configuration
	initLogger(cfg)

	// Create context for startup
	ctx := context.Background()

	// Initialize database pool with retry
	pool, err := database.NewPool(ctx, cfg.DB.DSN(), 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Repositories (durability layer)
	poolRepo := repository.NewPoolRepository(pool)
	journal := repository.NewClaimJournal(pool)
	grantRepo := repository.NewGrantRepository(pool)
	walletRepo := repository.NewWalletRepository(pool)

	// In-memory engine (runtime arbiter), hydrated from the database
	ledger := stock.NewLedger()
	guard := claim.NewGuard()
	store := configstore.NewStore(ledger)
	if err := repository.Hydrate(ctx, poolRepo, journal, grantRepo, store, ledger, guard, time.Now()); err != nil {
		log.Fatal().Err(err).Msg("failed to hydrate engine state")
	}

	// Asynchronous prize fulfillment
	dispatcher := fulfillment.NewDispatcher(
		walletRepo,
		grantRepo,
		cfg.Engine.FulfillQueueSize,
		time.Duration(cfg.Engine.FulfillMaxElapsed)*time.Second,
	)
	dispatcher.Start(cfg.Engine.FulfillWorkers)

	rewardService := service.NewRewardService(
		store, ledger, guard, walletRepo, dispatcher, journal, poolRepo,
		cfg.Engine.DrawMaxRetries,
	)

	// Initialize Fiber with production-ready configuration
	app := fiber.New(fiber.Config{
		AppName:      "Reward Allocation Engine",
		ReadTimeout:  30 * time.Second,  // Max time to read request
		WriteTimeout: 30 * time.Second,  // Max time to write response
		IdleTimeout:  120 * time.Second, // Max time for keep-alive connections
		BodyLimit:    1 * 1024 * 1024,   // 1MB body limit
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New()) // Adds X-Request-ID header to all requests
	app.Use(logger.New())

	// Initialize validator with custom rules
	validate := validator.New()

	// Handlers (layered architecture)
	drawHandler := handler.NewDrawHandler(rewardService, validate)
	spinHandler := handler.NewSpinHandler(rewardService, validate)
	adminHandler := handler.NewAdminHandler(rewardService, grantRepo, validate)

	// Health handler
	healthHandler := handler.NewHealthHandler(pool)
	app.Get("/health", healthHandler.Check)

	// Player routes
	app.Post("/api/draws", drawHandler.Draw)
	app.Post("/api/spins", spinHandler.Spin)

	// Admin routes
	app.Post("/api/pools", adminHandler.CreatePool)
	app.Get("/api/pools/:id/probabilities", adminHandler.Probabilities)
	app.Put("/api/pools/:id/entries", adminHandler.UpsertEntry)
	app.Delete("/api/pools/:id/entries/:entryID", adminHandler.DeleteEntry)
	app.Post("/api/reels", adminHandler.CreateReelConfig)
	app.Post("/api/entries/:id/restock", adminHandler.Restock)
	app.Post("/api/wallets/credit", adminHandler.Credit)
	app.Get("/api/wallets/:userID", adminHandler.Balance)
	app.Get("/api/users/:userID/grants", adminHandler.Grants)

	// Janitor: drop expired daily claim counters and journal rows
	janitorStop := make(chan struct{})
	go runJanitor(guard, journal, time.Duration(cfg.Engine.JanitorInterval)*time.Minute, janitorStop)

	// Start server with graceful shutdown
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	log.Info().Int("timeout_seconds", cfg.Server.ShutdownTimeout).Msg("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	// Shutdown server (waits for in-flight requests)
	log.Info().Msg("waiting for in-flight requests to complete...")
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	close(janitorStop)

	// Drain the fulfillment queue before dropping the database pool so no
	// committed draw loses its grant.
	log.Info().Msg("draining fulfillment queue...")
	dispatcher.Close()

	log.Info().Msg("closing database connections...")
	pool.Close()
	log.Info().Msg("database connections closed")
	log.Info().Msg("server stopped")
}

// runJanitor periodically prunes claim counters and journal rows for past
// days. Lifetime (once-ever) state is never pruned.
func runJanitor(guard *claim.Guard, journal *repository.ClaimJournal, interval time.Duration, stop <-chan struct{}) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			today := claim.DayKey(time.Now())
			dropped := guard.PruneBefore(today)

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			deleted, err := journal.PruneBefore(ctx, today)
			cancel()
			if err != nil {
				log.Error().Err(err).Msg("failed to prune claim journal")
				continue
			}

			log.Info().
				Int("counters_dropped", dropped).
				Int64("rows_deleted", deleted).
				Str("before", today).
				Msg("janitor pruned expired claim state")
		}
	}
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Log.Pretty {
		// Human-readable output for development
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		// JSON output for production
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
