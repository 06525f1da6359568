package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/radflow-triage-server/internal/api"
	"github.com/radflow-triage-server/internal/config"
	"github.com/radflow-triage-server/internal/database"
	"github.com/radflow-triage-server/internal/logging"
	"github.com/radflow-triage-server/internal/middleware"
	"github.com/radflow-triage-server/internal/service"
	"github.com/radflow-triage-server/internal/snapshot"
	"github.com/radflow-triage-server/pkg/external"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	storage := cfg.Storage
	if storage.Backend == snapshot.BackendPostgres && storage.AutoMigrate {
		if err := database.MigrateUp(ctx, storage.PostgresURL, storage.MigrationsPath, logger); err != nil {
			logger.WithError(err).Fatal("Database migration failed")
		}
	}

	persist, err := snapshot.Open(ctx, snapshot.Options{
		Backend:     storage.Backend,
		SlotKey:     storage.SlotKey,
		SQLitePath:  storage.SQLitePath,
		PostgresURL: storage.PostgresURL,
		RedisURL:    storage.RedisURL,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to open snapshot store")
	}
	defer func() {
		if err := persist.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close snapshot store")
		}
	}()
	logger.WithField("backend", storage.Backend).Info("Snapshot store opened")

	store := service.NewStudyStore(persist, logger)
	store.Initialize(ctx)

	history, err := service.NewAnalysisHistory(cfg.History.MaxItems)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create analysis history")
	}

	generator, err := external.NewGenerator(ctx, cfg.AI, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create AI generator")
	}

	metrics := middleware.NewMetrics()
	gateway := external.NewGateway(generator, cfg.AI, logger,
		external.WithMetrics(external.NewMetrics(metrics.Registry())))

	server := api.NewServer(configManager, api.Dependencies{
		Store:   store,
		Gateway: gateway,
		History: history,
		Metrics: metrics,
	}, logger)

	logger.WithField("port", cfg.Server.Port).Info("Starting RadFlow triage server")
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}
