// Package mcp exposes the triage worklist and AI assistance as MCP tools.
package mcp

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/radflow-triage-server/internal/domain"
	"github.com/radflow-triage-server/internal/service"
)

const (
	serverName    = "radflow-triage-server"
	serverVersion = "v1.0.0"
)

// Server is the MCP tool server over a study store and AI gateway.
type Server struct {
	mcpServer *mcp.Server
	store     *service.StudyStore
	gateway   domain.AIGateway
	history   *service.AnalysisHistory
	validate  *validator.Validate
	logger    *logrus.Logger
}

// ServerOption is a functional option for Server.
type ServerOption func(*Server) error

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// WithHistory records successful analyses in history.
func WithHistory(history *service.AnalysisHistory) ServerOption {
	return func(s *Server) error {
		s.history = history
		return nil
	}
}

// NewServer creates a new MCP server instance
func NewServer(store *service.StudyStore, gateway domain.AIGateway, opts ...ServerOption) (*Server, error) {
	server := &Server{
		store:   store,
		gateway: gateway,
		logger:  logrus.New(),
	}
	server.logger.SetFormatter(&logrus.JSONFormatter{})

	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	validate, err := domain.NewRequestValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create validator: %w", err)
	}
	server.validate = validate

	server.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, nil)
	server.registerTools()

	server.logger.Info("MCP server initialized")
	return server, nil
}

// Start serves MCP over stdio until ctx is cancelled or the client
// disconnects.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting RadFlow MCP server on stdio")

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        toolListStudies,
		Description: "List the radiology worklist, newest first. Optionally filter by status or priority.",
	}, s.handleListStudies)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        toolRegisterStudy,
		Description: "Register a new patient study. The server assigns the id, sets status Registered and stamps the arrival time.",
	}, s.handleRegisterStudy)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        toolPatchStudy,
		Description: "Update fields of an existing study by id. Id, priority and arrival time cannot be changed.",
	}, s.handlePatchStudy)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        toolDashboardStats,
		Description: "Return worklist counters: live, urgent, queue and per status/priority totals.",
	}, s.handleDashboardStats)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        toolAnalyzeReport,
		Description: "Extract clinical history, lab correlations, key findings and follow-up suggestions from a radiology report.",
	}, s.handleAnalyzeReport)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        toolGenerateExplanation,
		Description: "Draft a short, empathetic wait-time explanation for a patient. Give either patientName or studyId.",
	}, s.handleGenerateExplanation)

	s.logger.WithField("tool_count", len(ToolNames())).Info("Registered MCP tools")
}
