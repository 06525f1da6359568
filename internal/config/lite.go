// Package config provides configuration management for the triage server.
// This file contains the lightweight configuration used by the MCP server
// and the operator CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// LiteConfig is a simplified configuration for standalone operation.
// It requires no external databases and uses sensible defaults.
type LiteConfig struct {
	// Data storage
	DataDir     string `envconfig:"DATA_DIR"`
	Backend     string `envconfig:"BACKEND" default:"sqlite"`
	SlotKey     string `envconfig:"SLOT_KEY" default:"radflow_studies"`
	PostgresURL string `envconfig:"POSTGRES_URL"`
	RedisURL    string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`

	MigrationsPath string `envconfig:"MIGRATIONS_PATH" default:"./migrations"`

	// AI settings; GEMINI_API_KEY is honoured when RADFLOW_GEMINI_API_KEY is unset
	APIKey    string        `envconfig:"GEMINI_API_KEY"`
	Model     string        `envconfig:"MODEL" default:"gemini-3-flash-preview"`
	AIBaseURL string        `envconfig:"AI_BASE_URL"`
	AITimeout time.Duration `envconfig:"AI_TIMEOUT" default:"0s"`

	HistoryMaxItems int `envconfig:"HISTORY_MAX_ITEMS" default:"50"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()

	return &LiteConfig{
		DataDir:         filepath.Join(homeDir, ".radflow"),
		Backend:         "sqlite",
		SlotKey:         DefaultSlotKey,
		RedisURL:        "redis://localhost:6379/0",
		MigrationsPath:  "./migrations",
		Model:           DefaultModel,
		HistoryMaxItems: 50,
		LogLevel:        "info",
		LogFormat:       "json",
	}
}

// LoadLiteConfig loads configuration from RADFLOW_* environment variables.
func LoadLiteConfig() (*LiteConfig, error) {
	cfg := DefaultLiteConfig()
	if err := envconfig.Process("radflow", cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	if cfg.SlotKey == "" {
		return nil, fmt.Errorf("slot key cannot be empty")
	}
	return cfg, nil
}

// SQLitePath returns the path to the worklist SQLite database.
func (c *LiteConfig) SQLitePath() string {
	return filepath.Join(c.DataDir, "radflow.db")
}

// ExportDir returns the directory for JSON exports.
func (c *LiteConfig) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.ExportDir(), 0755)
}
