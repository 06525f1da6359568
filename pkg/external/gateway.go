// Package external adapts the generative text service used for report
// analysis and patient explanations.
package external

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/radflow-triage-server/internal/domain"
)

const (
	opAnalyzeReport       = "analyze_report"
	opGenerateExplanation = "generate_explanation"
)

// Gateway turns the two model operations into domain results. By default
// each call is a single attempt with no deadline beyond the caller's
// context; a timeout and a circuit breaker can be switched on through
// AIConfig.
type Gateway struct {
	generator TextGenerator
	model     string
	timeout   time.Duration
	breaker   *gobreaker.CircuitBreaker
	metrics   *Metrics
	logger    *logrus.Logger
}

// GatewayOption is a functional option for Gateway.
type GatewayOption func(*Gateway)

// WithMetrics records call outcomes in m.
func WithMetrics(m *Metrics) GatewayOption {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// NewGateway creates a gateway over generator.
func NewGateway(generator TextGenerator, cfg domain.AIConfig, logger *logrus.Logger, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		generator: generator,
		model:     cfg.Model,
		timeout:   cfg.Timeout,
		logger:    logger,
	}

	if cb := cfg.CircuitBreaker; cb.Enabled {
		threshold := cb.FailureThreshold
		g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "ai-gateway",
			MaxRequests: cb.MaxRequests,
			Interval:    cb.Interval,
			Timeout:     cb.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.WithFields(logrus.Fields{
					"circuit_breaker": name,
					"from_state":      from.String(),
					"to_state":        to.String(),
				}).Warn("Circuit breaker state changed")
			},
		})
	}

	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AnalyzeReport extracts the four structured fields from reportText. It
// either returns all four fields or an *domain.AnalysisError. Callers reject
// blank text before calling; the text is forwarded as given.
func (g *Gateway) AnalyzeReport(ctx context.Context, reportText string) (*domain.ReportAnalysis, error) {
	text, err := g.call(ctx, opAnalyzeReport, GenerateRequest{
		Model:             g.model,
		Prompt:            reportText,
		SystemInstruction: analysisSystemInstruction,
		ResponseSchema:    analysisSchema(),
	})
	if err != nil {
		return nil, &domain.AnalysisError{Reason: "request failed", Err: err}
	}

	analysis, err := domain.ParseReportAnalysis(text)
	if err != nil {
		g.logger.WithError(err).Warn("Model returned a malformed report analysis")
		return nil, &domain.AnalysisError{Reason: "invalid response", Err: err}
	}
	return analysis, nil
}

// GenerateExplanation drafts a short patient-facing explanation. An empty
// model reply yields an empty string rather than an error.
func (g *Gateway) GenerateExplanation(ctx context.Context, patientName, reason string) (string, error) {
	if strings.TrimSpace(patientName) == "" || strings.TrimSpace(reason) == "" {
		return "", &domain.ExplanationError{Reason: "patient name and reason are required"}
	}

	text, err := g.call(ctx, opGenerateExplanation, GenerateRequest{
		Model:             g.model,
		Prompt:            explanationPrompt(patientName, reason),
		SystemInstruction: explanationSystemInstruction,
	})
	if err != nil {
		return "", &domain.ExplanationError{Reason: "request failed", Err: err}
	}
	return text, nil
}

func (g *Gateway) call(ctx context.Context, operation string, req GenerateRequest) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	var (
		text string
		err  error
	)
	if g.breaker != nil {
		var result interface{}
		result, err = g.breaker.Execute(func() (interface{}, error) {
			return g.generator.Generate(ctx, req)
		})
		if err == nil {
			text = result.(string)
		}
	} else {
		text, err = g.generator.Generate(ctx, req)
	}
	elapsed := time.Since(start)

	outcome := "success"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = "rejected"
	case err != nil:
		outcome = "error"
	}
	g.metrics.observe(operation, outcome, elapsed)

	entry := g.logger.WithFields(logrus.Fields{
		"operation":   operation,
		"model":       req.Model,
		"duration_ms": elapsed.Milliseconds(),
		"outcome":     outcome,
	})
	if err != nil {
		entry.WithError(err).Warn("AI request failed")
		return "", err
	}
	entry.Debug("AI request completed")
	return text, nil
}
