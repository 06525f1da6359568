// Package api serves the triage worklist, dashboard and AI assistance over
// HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/radflow-triage-server/internal/domain"
	"github.com/radflow-triage-server/internal/middleware"
	"github.com/radflow-triage-server/internal/service"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

const shutdownTimeout = 30 * time.Second

// Dependencies are the components the HTTP handlers call into.
type Dependencies struct {
	Store   *service.StudyStore
	Gateway domain.AIGateway
	History *service.AnalysisHistory
	Metrics *middleware.Metrics
}

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	router        *gin.Engine
	server        *http.Server
	store         *service.StudyStore
	gateway       domain.AIGateway
	history       *service.AnalysisHistory
	metrics       *middleware.Metrics
	logger        *logrus.Logger
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, deps Dependencies, logger *logrus.Logger) *Server {
	cfg := configManager.GetConfig()

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	registerValidators()

	if deps.Metrics == nil {
		deps.Metrics = middleware.NewMetrics()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(""))
	router.Use(deps.Metrics.Middleware())

	server := &Server{
		configManager: configManager,
		router:        router,
		store:         deps.Store,
		gateway:       deps.Gateway,
		history:       deps.History,
		metrics:       deps.Metrics,
		logger:        logger,
	}

	server.setupRoutes(cfg)

	return server
}

// Router exposes the configured engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes(cfg *domain.Config) {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", s.metrics.Handler())

	v1 := s.router.Group("/api/v1")
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		v1.Use(limiter.RateLimit())
	}

	// The change stream is long-lived and sits outside the request timeout.
	v1.GET("/studies/stream", s.handleStudyStream)

	api := v1.Group("", middleware.RequestTimeout(cfg.Server.RequestTimeout))
	{
		api.GET("/studies", s.handleListStudies)
		api.POST("/studies", s.handleRegisterStudy)
		api.GET("/studies/:id", s.handleGetStudy)
		api.PATCH("/studies/:id", s.handlePatchStudy)
		api.POST("/studies/:id/explanation", s.handleStudyExplanation)

		api.GET("/dashboard/stats", s.handleStats)

		api.POST("/reports/analyze", s.handleAnalyzeReport)
		api.GET("/reports/sample", s.handleSampleReport)
		api.GET("/reports/recent", s.handleRecentReports)

		api.GET("/awareness/reasons", s.handleDelayReasons)
		api.POST("/awareness/explain", s.handleExplain)

		api.POST("/collaboration/:id/flag", s.handleSetFlag)
		api.DELETE("/collaboration/:id/flag", s.handleClearFlag)
		api.POST("/collaboration/:id/note", s.handleAddNote)
		api.POST("/collaboration/:id/complete", s.handleScanComplete)
	}
}

// handleHealth reports liveness and whether the last save reached storage.
func (s *Server) handleHealth(c *gin.Context) {
	status := "healthy"
	data := gin.H{
		"version":   Version,
		"timestamp": time.Now().UTC(),
		"studies":   len(s.store.Snapshot()),
	}
	if err := s.store.PersistError(); err != nil {
		status = "degraded"
		data["persistence_error"] = err.Error()
	}
	data["status"] = status

	respond(c, http.StatusOK, data)
}
