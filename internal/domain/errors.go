package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrStudyNotFound is returned by read lookups. Updates never return it.
	ErrStudyNotFound = errors.New("study not found")
	// ErrEmptyReport is reported by callers that receive blank report text.
	ErrEmptyReport = errors.New("report text is empty")
	// ErrInvalidSnapshot marks stored worklist data that cannot be decoded.
	ErrInvalidSnapshot = errors.New("invalid study snapshot")
)

// APIError represents a standardized error response
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrCodeValidation  = "VALIDATION_ERROR"
	ErrCodeNotFound    = "NOT_FOUND"
	ErrCodeAnalysis    = "ANALYSIS_FAILED"
	ErrCodeExplanation = "EXPLANATION_FAILED"
	ErrCodeRateLimit   = "RATE_LIMITED"
	ErrCodeInternal    = "INTERNAL_ERROR"
)

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// AnalysisError reports a failed report analysis. No partial result
// accompanies it.
type AnalysisError struct {
	Reason string
	Err    error
}

func (e *AnalysisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("report analysis failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("report analysis failed: %s", e.Reason)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// ExplanationError reports a failed patient explanation request.
type ExplanationError struct {
	Reason string
	Err    error
}

func (e *ExplanationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("explanation generation failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("explanation generation failed: %s", e.Reason)
}

func (e *ExplanationError) Unwrap() error { return e.Err }
