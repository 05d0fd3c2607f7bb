package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cds-rules-server/internal/domain"
	"github.com/cds-rules-server/internal/health"
	"github.com/cds-rules-server/internal/middleware"
	"github.com/cds-rules-server/internal/service"
)

// Services bundles the rule-layer collaborators the HTTP surface exposes.
type Services struct {
	Detector  *service.ConditionDetector
	Engine    *service.RuleEngine
	Monitor   *service.LabResultMonitor
	Scheduler *service.ScreeningScheduler
	Catalog   *service.ProtocolCatalog
	Records   domain.PatientRecordStore
	Reminders domain.ReminderStore
	Health    *health.Checker
}

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	logger        *logrus.Logger
	services      Services
	router        *gin.Engine
	server        *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, logger *logrus.Logger, services Services) *Server {
	cfg := configManager.GetConfig()

	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.AuditLogger(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CorrelationID())
	router.Use(corsMiddleware())

	limiter := middleware.NewRateLimiter(logger, cfg.Server.RateLimitRPS, cfg.Server.RateBurst)
	router.Use(limiter.Middleware())

	server := &Server{
		configManager: configManager,
		logger:        logger,
		services:      services,
		router:        router,
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// Start starts the HTTP server
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

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	s.logger.WithField("addr", addr).Info("HTTP server listening")

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.GET("/health", s.handleHealth)

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/conditions/detect", s.handleDetectConditions)
		v1.POST("/rules/evaluate", s.handleEvaluateRules)
		v1.POST("/labs/monitor", s.handleMonitorLab)
		v1.GET("/protocols/:condition", s.handleProtocolsForCondition)
		v1.GET("/patients/:id/screenings/due", s.handleDueScreenings)
		v1.POST("/patients/:id/screenings/reminders", s.handleRaiseReminders)
		v1.POST("/patients/:id/screenings/performed", s.handleScreeningPerformed)
		v1.GET("/patients/:id/reminders", s.handleListReminders)
		v1.GET("/patients/:id/plans", s.handleListPlans)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	if s.services.Health == nil {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC(),
		})
		return
	}

	status := s.services.Health.Run(c.Request.Context())
	code := http.StatusOK
	if status.State == health.StateUnhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-API-Key")
		c.Header("Access-Control-Expose-Headers", "Content-Length")
		c.Header("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
