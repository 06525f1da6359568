// Package main provides the MCP stdio entry point for the triage worklist.
// It is configured entirely from RADFLOW_* environment variables.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/radflow-triage-server/internal/config"
	"github.com/radflow-triage-server/internal/domain"
	"github.com/radflow-triage-server/internal/logging"
	"github.com/radflow-triage-server/internal/mcp"
	"github.com/radflow-triage-server/internal/service"
	"github.com/radflow-triage-server/internal/snapshot"
	"github.com/radflow-triage-server/pkg/external"
)

func main() {
	cfg, err := config.LoadLiteConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.EnsureDataDir(); err != nil {
		logger.WithError(err).Fatal("Failed to create data directory")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	persist, err := snapshot.Open(ctx, snapshot.Options{
		Backend:     cfg.Backend,
		SlotKey:     cfg.SlotKey,
		SQLitePath:  cfg.SQLitePath(),
		PostgresURL: cfg.PostgresURL,
		RedisURL:    cfg.RedisURL,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to open snapshot store")
	}
	defer persist.Close()

	store := service.NewStudyStore(persist, logger)
	store.Initialize(ctx)

	history, err := service.NewAnalysisHistory(cfg.HistoryMaxItems)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create analysis history")
	}

	aiConfig := domain.AIConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.AIBaseURL,
		Timeout: cfg.AITimeout,
	}
	generator, err := external.NewGenerator(ctx, aiConfig, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create AI generator")
	}
	gateway := external.NewGateway(generator, aiConfig, logger)

	server, err := mcp.NewServer(store, gateway, mcp.WithLogger(logger), mcp.WithHistory(history))
	if err != nil {
		logger.WithError(err).Fatal("Failed to create MCP server")
	}

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("MCP server failed")
	}

	logger.Info("RadFlow MCP server stopped")
}
