package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/rs/zerolog/log"

	"example.com/hospital/services/emr/commands"
	"example.com/hospital/services/emr/config"
	"example.com/hospital/services/emr/metrics"
	"example.com/hospital/services/emr/projections"
	"example.com/hospital/services/emr/queries"
	"example.com/hospital/services/emr/tracing"
)

// Server is the HTTP server for the API
type Server struct {
	cfg        config.Config
	router     *gin.Engine
	httpServer *http.Server
	commands   *commands.Dispatcher
	queries    *queries.Dispatcher
	projector  *projections.Projector
	metrics    *metrics.Metrics
}

// NewServer creates a new API server. tracer may be nil.
func NewServer(
	cfg config.Config,
	commandDispatcher *commands.Dispatcher,
	queryDispatcher *queries.Dispatcher,
	projector *projections.Projector,
	m *metrics.Metrics,
	tracer tracing.Tracer,
) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &Server{
		cfg:       cfg,
		router:    gin.New(),
		commands:  commandDispatcher,
		queries:   queryDispatcher,
		projector: projector,
		metrics:   m,
	}

	server.setupMiddleware(tracer)
	server.setupRoutes()

	return server
}

// setupMiddleware adds middleware to the router
func (s *Server) setupMiddleware(tracer tracing.Tracer) {
	s.router.Use(RequestIDMiddleware())

	if s.cfg.CorsEnabled {
		s.router.Use(CORSMiddleware())
	}

	s.router.Use(gin.Recovery())
	s.router.Use(LoggingMiddleware())

	if tracer != nil {
		if app := tracer.Application(); app != nil {
			s.router.Use(nrgin.Middleware(app))
		}
	}
}

// setupRoutes defines the API routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	s.router.GET("/metrics", s.getMetrics)

	v1 := s.router.Group("/api/v1")

	v1.POST("/commands", s.dispatchCommand)
	v1.POST("/queries", s.dispatchQuery)

	projectionRoutes := v1.Group("/projections")
	{
		projectionRoutes.GET("", s.listProjections)
		projectionRoutes.POST("/:id/start", s.startProjection)
		projectionRoutes.POST("/:id/rebuild", s.rebuildProjection)
		projectionRoutes.POST("/retry", s.retryFailedEvents)
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.ServerAddress,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ServerTimeout,
		WriteTimeout: s.cfg.ServerTimeout,
	}

	log.Info().Msgf("HTTP server starting on %s", s.cfg.ServerAddress)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// getMetrics exposes the in-process metrics snapshot
func (s *Server) getMetrics(c *gin.Context) {
	if s.metrics == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, s.metrics.GetAllMetrics())
}
