package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fed-stew/authvital/internal/logging"
	"github.com/fed-stew/authvital/internal/simulator"
	"github.com/fed-stew/authvital/internal/simulator/issuer"
	"github.com/fed-stew/authvital/internal/simulator/storage/sqlite"
	"github.com/fed-stew/authvital/internal/simulator/sweeper"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Parse command-line flags. Everything else comes from SIM_* env vars.
	addr := flag.String("addr", "", "Listen address (overrides SIM_LISTEN_ADDR)")
	dbPath := flag.String("db", "", "SQLite database path (overrides SIM_DB_PATH)")
	flag.Parse()

	// Load configuration
	cfg, err := simulator.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	// Setup logging
	logger := logging.New(os.Stdout, logging.Config{
		Format: cfg.LogFormat,
		Level:  logging.ParseLevel(cfg.LogLevel),
	})
	mainLogger := logger.With("component", "main")

	// Initialize database
	mainLogger.Info("Initializing SQLite database", "path", cfg.DBPath)
	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	store := logging.NewStoreLogger(db, logger)

	// Start token sweeper
	swp := sweeper.New(store, time.Minute, logger.With("component", "sweeper"))
	go swp.Start()

	// Initialize router
	router := simulator.NewRouter(simulator.RouterConfig{
		Store:      store,
		Issuer:     issuer.New(cfg.SigningKey, cfg.TokenTTL),
		AdminToken: cfg.AdminToken,
		Logger:     logger,
	})

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		mainLogger.Info("Starting HTTP server",
			"addr", cfg.ListenAddr,
			"token_ttl", cfg.TokenTTL.String(),
		)
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		mainLogger.Info("Starting graceful shutdown", "signal", sig.String())

		swp.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		mainLogger.Info("Graceful shutdown complete")
	}

	return nil
}
