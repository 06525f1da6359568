package domain

import (
	"context"
)

// SnapshotStore is the durable key-value slot that mirrors the worklist.
// Each instance is bound to a single fixed key.
type SnapshotStore interface {
	// Load returns the stored document and whether the slot was populated.
	Load(ctx context.Context) ([]byte, bool, error)
	// Save replaces the stored document.
	Save(ctx context.Context, data []byte) error
	// Close releases backend resources.
	Close() error
}

// ReportAnalyzer extracts structured fields from radiology reports.
type ReportAnalyzer interface {
	AnalyzeReport(ctx context.Context, reportText string) (*ReportAnalysis, error)
}

// ExplanationGenerator drafts patient-facing wait-time explanations.
type ExplanationGenerator interface {
	GenerateExplanation(ctx context.Context, patientName, reason string) (string, error)
}

// AIGateway combines both external model operations.
type AIGateway interface {
	ReportAnalyzer
	ExplanationGenerator
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetStorageConfig() *StorageConfig
	GetAIConfig() *AIConfig
	Validate() error
}
