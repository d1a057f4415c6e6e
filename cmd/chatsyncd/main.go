package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/NexGen-Innovators-co/studdyhub-repo-sub000/internal/api"
	"github.com/NexGen-Innovators-co/studdyhub-repo-sub000/internal/chatsync"
	"github.com/NexGen-Innovators-co/studdyhub-repo-sub000/internal/config"
	"github.com/NexGen-Innovators-co/studdyhub-repo-sub000/internal/storage"
	"github.com/NexGen-Innovators-co/studdyhub-repo-sub000/internal/store"
)

// chatBackend is the full set of store capabilities the engine consumes.
type chatBackend interface {
	store.MessageBackend
	store.SessionBackend
	store.ResourceBackend
	Ping(ctx context.Context) error
	Close()
}

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()

	// Initialize the message backend: PostgreSQL when configured, SQLite otherwise
	var backend chatBackend
	if cfg.DatabaseURL != "" {
		pgStore, err := store.NewChatStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		backend = pgStore
		logger.Info().Msg("connected to PostgreSQL")
	} else {
		liteStore, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		backend = liteStore
		logger.Info().Str("path", cfg.SQLitePath).Msg("using SQLite backend")
	}
	defer backend.Close()

	// Initialize the realtime transport
	transport, err := store.NewRedisTransport(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer transport.Close()
	logger.Info().Msg("connected to Redis")

	// Build the sync engine
	engine := chatsync.NewEngine(chatsync.Options{
		Backend:           backend,
		Sessions:          backend,
		Resources:         backend,
		Signer:            storage.NewSigner(cfg.StorageBaseURL, cfg.StorageSecret),
		Transport:         transport,
		Publisher:         transport,
		UserID:            cfg.UserID,
		IngestDebounce:    cfg.IngestDebounce,
		DirectoryDebounce: cfg.DirectoryDebounce,
		Logger:            logger,
	})
	if err := engine.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("engine start failed")
	}
	defer engine.Close()

	// Create router
	router := api.NewRouter(logger, engine, backend, transport)

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Str("user_id", cfg.UserID.String()).
			Msg("starting chat sync daemon")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down...")

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("stopped")
}
