package external

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/radflow-triage-server/internal/domain"
)

// TextGenerator sends a single prompt to a generative text service.
type TextGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// GenerateRequest describes one model call.
type GenerateRequest struct {
	Model             string
	Prompt            string
	SystemInstruction string
	// ResponseSchema constrains the reply to a JSON object; nil means free text.
	ResponseSchema *ResponseSchema
}

// ResponseSchema is an object whose properties are all required strings.
type ResponseSchema struct {
	Properties []SchemaProperty
}

// SchemaProperty is one named string field of a ResponseSchema.
type SchemaProperty struct {
	Name        string
	Description string
}

// ErrNoCredential is returned by DisabledGenerator.
var ErrNoCredential = errors.New("AI service credential not configured")

// DisabledGenerator stands in when no API key is configured. Every call
// fails, so gateway operations surface a typed error instead of a result.
type DisabledGenerator struct{}

func (DisabledGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	return "", ErrNoCredential
}

// NewGenerator returns a Gemini generator for cfg, or DisabledGenerator when
// no API key is configured so the worklist stays usable without AI.
func NewGenerator(ctx context.Context, cfg domain.AIConfig, logger *logrus.Logger) (TextGenerator, error) {
	if cfg.APIKey == "" {
		logger.Warn("No AI API key configured, report analysis and explanations are disabled")
		return DisabledGenerator{}, nil
	}

	gen, err := NewGeminiGenerator(ctx, GeminiConfig{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini generator: %w", err)
	}
	return gen, nil
}
