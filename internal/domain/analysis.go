package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ReportAnalysis is the structured extraction of a free-text radiology report.
// It is display-only and never merged into a PatientStudy.
type ReportAnalysis struct {
	ClinicalHistory     string `json:"clinicalHistory"`
	LabCorrelations     string `json:"labCorrelations"`
	KeyFindings         string `json:"keyFindings"`
	FollowUpSuggestions string `json:"followUpSuggestions"`
}

// ReportAnalysisFields lists the required properties in schema order.
var ReportAnalysisFields = []string{"clinicalHistory", "labCorrelations", "keyFindings", "followUpSuggestions"}

// ParseReportAnalysis decodes a model response into a ReportAnalysis. Every
// field must be present and string-typed; anything else is rejected.
func ParseReportAnalysis(text string) (*ReportAnalysis, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &raw); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}

	values := make(map[string]string, len(ReportAnalysisFields))
	var missing []string
	for _, field := range ReportAnalysisFields {
		msg, ok := raw[field]
		if !ok {
			missing = append(missing, field)
			continue
		}
		msg = bytes.TrimSpace(msg)
		var s string
		if len(msg) == 0 || msg[0] != '"' {
			return nil, NewValidationError(field, "must be a string", string(msg))
		}
		if err := json.Unmarshal(msg, &s); err != nil {
			return nil, NewValidationError(field, "must be a string", string(msg))
		}
		values[field] = s
	}
	if len(missing) > 0 {
		return nil, NewValidationError(strings.Join(missing, ","), "required field missing", nil)
	}

	return &ReportAnalysis{
		ClinicalHistory:     values["clinicalHistory"],
		LabCorrelations:     values["labCorrelations"],
		KeyFindings:         values["keyFindings"],
		FollowUpSuggestions: values["followUpSuggestions"],
	}, nil
}

// AnalysisRecord is a recently completed analysis kept for display.
type AnalysisRecord struct {
	ID         string         `json:"id"`
	ReportText string         `json:"reportText"`
	Analysis   ReportAnalysis `json:"analysis"`
	CreatedAt  time.Time      `json:"createdAt"`
}
