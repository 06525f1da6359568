package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestAPIError(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		message   string
		details   string
		requestID string
	}{
		{
			name:      "Validation error",
			code:      ErrCodeValidation,
			message:   "Invalid study patch",
			details:   "unknown field \"priority\"",
			requestID: "req-123",
		},
		{
			name:      "Analysis error",
			code:      ErrCodeAnalysis,
			message:   "Report analysis failed",
			details:   "response is not a JSON object",
			requestID: "req-456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewAPIError(tt.code, tt.message, tt.details, tt.requestID)

			if err.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, err.Code)
			}
			if err.Message != tt.message {
				t.Errorf("Expected message %s, got %s", tt.message, err.Message)
			}
			if err.Details != tt.details {
				t.Errorf("Expected details %s, got %s", tt.details, err.Details)
			}
			if err.RequestID != tt.requestID {
				t.Errorf("Expected requestID %s, got %s", tt.requestID, err.RequestID)
			}
			if time.Since(err.Timestamp) > time.Minute {
				t.Errorf("Timestamp should be recent, got %v", err.Timestamp)
			}

			expected := fmt.Sprintf("%s: %s", tt.code, tt.message)
			if err.Error() != expected {
				t.Errorf("Expected error string %s, got %s", expected, err.Error())
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("status", "unknown status", "Archived")

	if err.Field != "status" {
		t.Errorf("Expected field status, got %s", err.Field)
	}
	expected := "validation error for field 'status': unknown status"
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}
}

func TestGatewayErrorsUnwrap(t *testing.T) {
	cause := errors.New("connection reset")

	analysisErr := &AnalysisError{Reason: "request failed", Err: cause}
	if !errors.Is(analysisErr, cause) {
		t.Error("AnalysisError should unwrap to its cause")
	}

	explanationErr := &ExplanationError{Reason: "request failed", Err: cause}
	if !errors.Is(explanationErr, cause) {
		t.Error("ExplanationError should unwrap to its cause")
	}

	wrapped := fmt.Errorf("handler: %w", analysisErr)
	var target *AnalysisError
	if !errors.As(wrapped, &target) {
		t.Fatal("errors.As should find AnalysisError")
	}
	if target.Reason != "request failed" {
		t.Errorf("Unexpected reason %q", target.Reason)
	}

	bare := &ExplanationError{Reason: "empty name"}
	if bare.Error() != "explanation generation failed: empty name" {
		t.Errorf("Unexpected message %q", bare.Error())
	}
}
