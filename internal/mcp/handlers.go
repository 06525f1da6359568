package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/radflow-triage-server/internal/domain"
)

// Tool names.
const (
	toolListStudies         = "list_studies"
	toolRegisterStudy       = "register_study"
	toolPatchStudy          = "patch_study"
	toolDashboardStats      = "dashboard_stats"
	toolAnalyzeReport       = "analyze_report"
	toolGenerateExplanation = "generate_explanation"
)

// ToolNames lists every tool the server registers.
func ToolNames() []string {
	return []string{
		toolListStudies,
		toolRegisterStudy,
		toolPatchStudy,
		toolDashboardStats,
		toolAnalyzeReport,
		toolGenerateExplanation,
	}
}

// ListStudiesParams defines parameters for list_studies tool
type ListStudiesParams struct {
	Status   string `json:"status,omitempty" jsonschema:"only studies in this workflow state (Registered, In-Room, Reporting, Dispatched)"`
	Priority string `json:"priority,omitempty" jsonschema:"only studies with this priority (Routine, Fasting, Contrast, Stat/Sick)"`
}

// RegisterStudyParams defines parameters for register_study tool
type RegisterStudyParams struct {
	Name      string          `json:"name" jsonschema:"patient full name"`
	Age       int             `json:"age" jsonschema:"patient age in years"`
	Gender    string          `json:"gender" jsonschema:"patient gender"`
	Modality  domain.Modality `json:"modality" jsonschema:"CT, MRI, X-Ray or US"`
	StudyType string          `json:"studyType" jsonschema:"free-text study description"`
	Priority  domain.Priority `json:"priority" jsonschema:"Routine, Fasting, Contrast or Stat/Sick"`
}

// PatchStudyParams defines parameters for patch_study tool
type PatchStudyParams struct {
	ID               string           `json:"id" jsonschema:"study id, e.g. P-1042"`
	Name             *string          `json:"name,omitempty"`
	Age              *int             `json:"age,omitempty"`
	Gender           *string          `json:"gender,omitempty"`
	Modality         *domain.Modality `json:"modality,omitempty"`
	StudyType        *string          `json:"studyType,omitempty"`
	Status           *domain.Status   `json:"status,omitempty" jsonschema:"new workflow state"`
	TechnologistFlag *string          `json:"technologistFlag,omitempty" jsonschema:"technologist flag; empty string clears it"`
	RadiologistNote  *string          `json:"radiologistNote,omitempty" jsonschema:"radiologist note; empty string clears it"`
	ClinicalHistory  *string          `json:"clinicalHistory,omitempty"`
}

// Patch converts the parameters into a study patch.
func (p PatchStudyParams) Patch() domain.StudyPatch {
	return domain.StudyPatch{
		Name:             p.Name,
		Age:              p.Age,
		Gender:           p.Gender,
		Modality:         p.Modality,
		StudyType:        p.StudyType,
		Status:           p.Status,
		TechnologistFlag: p.TechnologistFlag,
		RadiologistNote:  p.RadiologistNote,
		ClinicalHistory:  p.ClinicalHistory,
	}
}

// DashboardStatsParams defines parameters for dashboard_stats tool
type DashboardStatsParams struct{}

// AnalyzeReportParams defines parameters for analyze_report tool
type AnalyzeReportParams struct {
	ReportText string `json:"reportText" jsonschema:"full text of the radiology report"`
}

// GenerateExplanationParams defines parameters for generate_explanation tool
type GenerateExplanationParams struct {
	PatientName string `json:"patientName,omitempty" jsonschema:"name to address the patient by"`
	StudyID     string `json:"studyId,omitempty" jsonschema:"look the patient name up from this study"`
	Reason      string `json:"reason" jsonschema:"reason for the change in scanning order"`
}

// PatchStudyResult reports the outcome of patch_study.
type PatchStudyResult struct {
	Updated bool                 `json:"updated"`
	Study   *domain.PatientStudy `json:"study,omitempty"`
}

func (s *Server) handleListStudies(ctx context.Context, req *mcp.CallToolRequest, params ListStudiesParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", toolListStudies).Info("Tool invoked")

	status := domain.Status(params.Status)
	if status != "" && !status.Valid() {
		return s.createErrorResult("Invalid parameters", fmt.Errorf("unknown status %q", params.Status)), nil, nil
	}
	priority := domain.Priority(params.Priority)
	if priority == "Stat" {
		priority = domain.PriorityStat
	}
	if priority != "" && !priority.Valid() {
		return s.createErrorResult("Invalid parameters", fmt.Errorf("unknown priority %q", params.Priority)), nil, nil
	}

	studies := make([]domain.PatientStudy, 0)
	for _, study := range s.store.ListStudies() {
		if status != "" && study.Status != status {
			continue
		}
		if priority != "" && study.Priority != priority {
			continue
		}
		studies = append(studies, study)
	}

	return s.createJSONResult(fmt.Sprintf("%d studies", len(studies)), studies), nil, nil
}

func (s *Server) handleRegisterStudy(ctx context.Context, req *mcp.CallToolRequest, params RegisterStudyParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", toolRegisterStudy).Info("Tool invoked")

	registration := domain.RegisterStudyRequest{
		Name:      strings.TrimSpace(params.Name),
		Age:       params.Age,
		Gender:    strings.TrimSpace(params.Gender),
		Modality:  params.Modality,
		StudyType: strings.TrimSpace(params.StudyType),
		Priority:  params.Priority,
	}
	if err := s.validate.Struct(registration); err != nil {
		return s.createErrorResult("Invalid parameters", err), nil, nil
	}

	study := s.store.RegisterStudy(ctx, registration)
	return s.createJSONResult("Registered study "+study.ID, study), nil, nil
}

func (s *Server) handlePatchStudy(ctx context.Context, req *mcp.CallToolRequest, params PatchStudyParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithFields(logrus.Fields{"tool": toolPatchStudy, "study_id": params.ID}).Info("Tool invoked")

	if params.ID == "" {
		return s.createErrorResult("Missing required parameter", errors.New("id is required")), nil, nil
	}

	study, ok := s.store.PatchStudy(ctx, params.ID, params.Patch())
	result := PatchStudyResult{Updated: ok}
	summary := "No study with id " + params.ID
	if ok {
		result.Study = &study
		summary = "Updated study " + params.ID
	}
	return s.createJSONResult(summary, result), nil, nil
}

func (s *Server) handleDashboardStats(ctx context.Context, req *mcp.CallToolRequest, params DashboardStatsParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", toolDashboardStats).Info("Tool invoked")

	stats := s.store.Stats()
	summary := fmt.Sprintf("%d live, %d urgent, %d in queue", stats.Live, stats.Urgent, stats.Queue)
	return s.createJSONResult(summary, stats), nil, nil
}

func (s *Server) handleAnalyzeReport(ctx context.Context, req *mcp.CallToolRequest, params AnalyzeReportParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", toolAnalyzeReport).Info("Tool invoked")

	if strings.TrimSpace(params.ReportText) == "" {
		return s.createErrorResult("Missing required parameter", domain.ErrEmptyReport), nil, nil
	}

	analysis, err := s.gateway.AnalyzeReport(ctx, params.ReportText)
	if err != nil {
		s.logger.WithError(err).Warn("Report analysis failed")
		return s.createErrorResult("Report analysis failed", err), nil, nil
	}

	if s.history != nil {
		s.history.Record(params.ReportText, *analysis)
	}
	return s.createJSONResult("Report analysis", analysis), nil, nil
}

func (s *Server) handleGenerateExplanation(ctx context.Context, req *mcp.CallToolRequest, params GenerateExplanationParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", toolGenerateExplanation).Info("Tool invoked")

	name := params.PatientName
	if params.StudyID != "" {
		study, err := s.store.GetStudy(params.StudyID)
		if err != nil {
			return s.createErrorResult("Study not found", fmt.Errorf("%s: %w", params.StudyID, err)), nil, nil
		}
		name = study.Name
	}

	text, err := s.gateway.GenerateExplanation(ctx, name, params.Reason)
	if err != nil {
		s.logger.WithError(err).Warn("Explanation generation failed")
		return s.createErrorResult("Explanation generation failed", err), nil, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// createJSONResult renders v as indented JSON after a one-line summary.
func (s *Server) createJSONResult(summary string, v interface{}) *mcp.CallToolResult {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return s.createErrorResult("Failed to encode result", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: summary},
			&mcp.TextContent{Text: string(body)},
		},
	}
}

// createErrorResult creates a standardized error result for tool calls
func (s *Server) createErrorResult(message string, err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("%s: %v", message, err)},
		},
	}
}
