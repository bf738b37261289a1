package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/feral-file/ff-name-registry/internal/api/middleware"
	"github.com/feral-file/ff-name-registry/internal/api/rest"
	"github.com/feral-file/ff-name-registry/internal/logger"
	"github.com/feral-file/ff-name-registry/internal/metrics"
	"github.com/feral-file/ff-name-registry/internal/ratelimit"
)

// Config holds the server configuration
type Config struct {
	Debug        bool
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	Auth         middleware.AuthConfig
}

// Server wraps the HTTP server
type Server struct {
	config     Config
	registry   rest.Registry
	limiter    ratelimit.Limiter
	metrics    *metrics.Metrics
	gatherer   prometheus.Gatherer
	httpServer *http.Server
}

// New creates a new API server. limiter may be nil.
func New(cfg Config, registry rest.Registry, limiter ratelimit.Limiter, m *metrics.Metrics, gatherer prometheus.Gatherer) *Server {
	return &Server{
		config:   cfg,
		registry: registry,
		limiter:  limiter,
		metrics:  m,
		gatherer: gatherer,
	}
}

// Router builds the gin engine with every middleware and route
func (s *Server) Router() (*gin.Engine, error) {
	// Set Gin mode based on debug flag
	if s.config.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	authenticator, err := middleware.NewAuthenticator(s.config.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticator: %w", err)
	}

	router := gin.New()

	// Setup middleware
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.SetupCORS())

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	rest.SetupRoutes(router, rest.NewHandler(s.registry), rest.RouteConfig{
		Auth:    authenticator,
		Limiter: s.limiter,
		Metrics: s.metrics,
	})
	return router, nil
}

// Start initializes and starts the HTTP server. It blocks until the server stops.
func (s *Server) Start() error {
	router, err := s.Router()
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	logger.Info("Starting API server", zap.String("address", addr))

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	logger.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
