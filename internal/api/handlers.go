package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/radflow-triage-server/internal/domain"
	"github.com/radflow-triage-server/internal/middleware"
	"github.com/radflow-triage-server/internal/service"
)

const (
	defaultRecentLimit = 10
	maxRequestBody     = 1 << 20
)

// AnalyzeReportRequest is the body of POST /reports/analyze.
type AnalyzeReportRequest struct {
	ReportText string `json:"reportText"`
}

// ExplainRequest is the body of POST /awareness/explain.
type ExplainRequest struct {
	PatientName string `json:"patientName" binding:"required"`
	Reason      string `json:"reason" binding:"required"`
}

// StudyExplanationRequest is the body of POST /studies/:id/explanation.
type StudyExplanationRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// FlagRequest is the body of POST /collaboration/:id/flag.
type FlagRequest struct {
	Flag string `json:"flag" binding:"required"`
}

// NoteRequest is the body of POST /collaboration/:id/note.
type NoteRequest struct {
	Note string `json:"note" binding:"required"`
}

// PatchResult reports whether a patch matched a study.
type PatchResult struct {
	Updated bool                 `json:"updated"`
	Study   *domain.PatientStudy `json:"study,omitempty"`
}

func (s *Server) handleListStudies(c *gin.Context) {
	status := domain.Status(c.Query("status"))
	if status != "" && !status.Valid() {
		respondError(c, http.StatusBadRequest, domain.ErrCodeValidation, "Unknown status filter", string(status))
		return
	}
	priority := domain.Priority(c.Query("priority"))
	if priority == "Stat" {
		priority = domain.PriorityStat
	}
	if priority != "" && !priority.Valid() {
		respondError(c, http.StatusBadRequest, domain.ErrCodeValidation, "Unknown priority filter", string(priority))
		return
	}

	studies := s.store.ListStudies()
	if status != "" || priority != "" {
		filtered := make([]domain.PatientStudy, 0, len(studies))
		for _, study := range studies {
			if status != "" && study.Status != status {
				continue
			}
			if priority != "" && study.Priority != priority {
				continue
			}
			filtered = append(filtered, study)
		}
		studies = filtered
	}

	respond(c, http.StatusOK, studies)
}

func (s *Server) handleRegisterStudy(c *gin.Context) {
	var req domain.RegisterStudyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrCodeValidation, "Invalid study registration", err.Error())
		return
	}

	study := s.store.RegisterStudy(c.Request.Context(), req)
	respond(c, http.StatusCreated, study)
}

func (s *Server) handleGetStudy(c *gin.Context) {
	study, err := s.store.GetStudy(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusNotFound, domain.ErrCodeNotFound, "Study not found", c.Param("id"))
		return
	}
	respond(c, http.StatusOK, study)
}

// handlePatchStudy applies a partial update. A missing id is not an error:
// the response reports updated=false.
func (s *Server) handlePatchStudy(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRequestBody))
	if err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrCodeValidation, "Failed to read request body", err.Error())
		return
	}
	patch, err := domain.DecodeStudyPatchBytes(body)
	if err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrCodeValidation, "Invalid study patch", err.Error())
		return
	}

	study, ok := s.store.PatchStudy(c.Request.Context(), c.Param("id"), patch)
	result := PatchResult{Updated: ok}
	if ok {
		result.Study = &study
	}
	respond(c, http.StatusOK, result)
}

func (s *Server) handleStats(c *gin.Context) {
	respond(c, http.StatusOK, s.store.Stats())
}

func (s *Server) handleAnalyzeReport(c *gin.Context) {
	var req AnalyzeReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrCodeValidation, "Invalid analysis request", err.Error())
		return
	}
	if strings.TrimSpace(req.ReportText) == "" {
		respondError(c, http.StatusBadRequest, domain.ErrCodeValidation, "Report text is required", "")
		return
	}

	analysis, err := s.gateway.AnalyzeReport(c.Request.Context(), req.ReportText)
	if err != nil {
		s.respondGatewayError(c, err)
		return
	}

	record := s.history.Record(req.ReportText, *analysis)
	respond(c, http.StatusOK, record)
}

func (s *Server) handleSampleReport(c *gin.Context) {
	respond(c, http.StatusOK, gin.H{"reportText": service.SampleReport})
}

func (s *Server) handleRecentReports(c *gin.Context) {
	limit := defaultRecentLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(c, http.StatusBadRequest, domain.ErrCodeValidation, "limit must be a positive integer", raw)
			return
		}
		limit = n
	}
	respond(c, http.StatusOK, s.history.Recent(limit))
}

func (s *Server) handleDelayReasons(c *gin.Context) {
	respond(c, http.StatusOK, gin.H{"reasons": service.DelayReasons()})
}

func (s *Server) handleExplain(c *gin.Context) {
	var req ExplainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrCodeValidation, "Patient name and reason are required", err.Error())
		return
	}
	s.explain(c, "", req.PatientName, req.Reason)
}

func (s *Server) handleStudyExplanation(c *gin.Context) {
	var req StudyExplanationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrCodeValidation, "Reason is required", err.Error())
		return
	}
	study, err := s.store.GetStudy(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusNotFound, domain.ErrCodeNotFound, "Study not found", c.Param("id"))
		return
	}
	s.explain(c, study.ID, study.Name, req.Reason)
}

func (s *Server) explain(c *gin.Context, studyID, patientName, reason string) {
	text, err := s.gateway.GenerateExplanation(c.Request.Context(), patientName, reason)
	if err != nil {
		s.respondGatewayError(c, err)
		return
	}

	data := gin.H{"explanation": text}
	if studyID != "" {
		data["studyId"] = studyID
	}
	respond(c, http.StatusOK, data)
}

func (s *Server) handleSetFlag(c *gin.Context) {
	var req FlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrCodeValidation, "Flag text is required", err.Error())
		return
	}
	s.collaborate(c, domain.StudyPatch{TechnologistFlag: &req.Flag})
}

func (s *Server) handleClearFlag(c *gin.Context) {
	empty := ""
	s.collaborate(c, domain.StudyPatch{TechnologistFlag: &empty})
}

// handleAddNote records the radiologist's note. The status is left alone.
func (s *Server) handleAddNote(c *gin.Context) {
	var req NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrCodeValidation, "Note text is required", err.Error())
		return
	}
	s.collaborate(c, domain.StudyPatch{RadiologistNote: &req.Note})
}

// handleScanComplete moves the study to Reporting.
func (s *Server) handleScanComplete(c *gin.Context) {
	status := domain.StatusReporting
	s.collaborate(c, domain.StudyPatch{Status: &status})
}

// collaborate applies a quick action. Unlike PATCH these target a study
// the user is looking at, so a miss is reported as 404.
func (s *Server) collaborate(c *gin.Context, patch domain.StudyPatch) {
	study, ok := s.store.PatchStudy(c.Request.Context(), c.Param("id"), patch)
	if !ok {
		respondError(c, http.StatusNotFound, domain.ErrCodeNotFound, "Study not found", c.Param("id"))
		return
	}
	respond(c, http.StatusOK, study)
}

func (s *Server) respondGatewayError(c *gin.Context, err error) {
	var analysisErr *domain.AnalysisError
	var explanationErr *domain.ExplanationError

	switch {
	case errors.As(err, &analysisErr):
		s.logger.WithError(err).WithField("correlation_id", c.GetString(middleware.CorrelationIDKey)).Warn("Report analysis failed")
		respondError(c, http.StatusBadGateway, domain.ErrCodeAnalysis, "Report analysis failed", analysisErr.Reason)
	case errors.As(err, &explanationErr) && explanationErr.Err == nil:
		respondError(c, http.StatusBadRequest, domain.ErrCodeValidation, "Patient name and reason are required", explanationErr.Reason)
	case errors.As(err, &explanationErr):
		s.logger.WithError(err).WithField("correlation_id", c.GetString(middleware.CorrelationIDKey)).Warn("Explanation generation failed")
		respondError(c, http.StatusBadGateway, domain.ErrCodeExplanation, "Explanation generation failed", explanationErr.Reason)
	default:
		s.logger.WithError(err).WithField("correlation_id", c.GetString(middleware.CorrelationIDKey)).Error("Unexpected gateway error")
		respondError(c, http.StatusInternalServerError, domain.ErrCodeInternal, "Internal server error", "")
	}
}
