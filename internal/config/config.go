package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/radflow-triage-server/internal/domain"
)

// DefaultSlotKey is the fixed name of the durable worklist slot.
const DefaultSlotKey = "radflow_studies"

// DefaultModel is the generative model used when none is configured.
const DefaultModel = "gemini-3-flash-preview"

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v      *viper.Viper
	config *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	m := &Manager{v: viper.New()}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := m.v

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/radflow/")

	v.SetEnvPrefix("RADFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The credential is usually exported under the provider's own name.
	if err := v.BindEnv("ai.api_key", "RADFLOW_AI_API_KEY", "GEMINI_API_KEY"); err != nil {
		return fmt.Errorf("error binding api key: %w", err)
	}

	m.setDefaults()

	// Config file is optional; defaults and environment cover everything
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	v := m.v

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "0s")

	// Storage defaults
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.slot_key", DefaultSlotKey)
	v.SetDefault("storage.sqlite_path", "./data/radflow.db")
	v.SetDefault("storage.postgres_url", "")
	v.SetDefault("storage.redis_url", "redis://localhost:6379/0")
	v.SetDefault("storage.migrations_path", "./migrations")
	v.SetDefault("storage.auto_migrate", true)

	// AI defaults: single attempt, no timeout, breaker off
	v.SetDefault("ai.model", DefaultModel)
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.timeout", "0s")
	v.SetDefault("ai.circuit_breaker.enabled", false)
	v.SetDefault("ai.circuit_breaker.max_requests", 1)
	v.SetDefault("ai.circuit_breaker.interval", "60s")
	v.SetDefault("ai.circuit_breaker.timeout", "30s")
	v.SetDefault("ai.circuit_breaker.failure_threshold", 5)

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20.0)
	v.SetDefault("rate_limit.burst", 40)

	v.SetDefault("history.max_items", 50)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetStorageConfig returns snapshot storage configuration
func (m *Manager) GetStorageConfig() *domain.StorageConfig {
	return &m.config.Storage
}

// GetAIConfig returns external model configuration
func (m *Manager) GetAIConfig() *domain.AIConfig {
	return &m.config.AI
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Storage.SlotKey == "" {
		return fmt.Errorf("storage slot key is required")
	}
	switch config.Storage.Backend {
	case "memory":
	case "sqlite":
		if config.Storage.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for the sqlite backend")
		}
	case "postgres":
		if config.Storage.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for the postgres backend")
		}
	case "redis":
		if config.Storage.RedisURL == "" {
			return fmt.Errorf("redis URL is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown storage backend: %s", config.Storage.Backend)
	}

	if config.AI.Model == "" {
		return fmt.Errorf("AI model is required")
	}
	if config.AI.Timeout < 0 {
		return fmt.Errorf("AI timeout cannot be negative")
	}
	if config.AI.CircuitBreaker.Enabled && config.AI.CircuitBreaker.FailureThreshold == 0 {
		return fmt.Errorf("circuit breaker failure threshold must be positive")
	}

	if config.RateLimit.Enabled && (config.RateLimit.RequestsPerSecond <= 0 || config.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit requires positive requests_per_second and burst")
	}

	if config.History.MaxItems <= 0 {
		return fmt.Errorf("history max items must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// HasAICredential reports whether an API key was supplied
func (m *Manager) HasAICredential() bool {
	return m.config.AI.APIKey != ""
}
