package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	api "github.com/GriffinCanCode/EnvForge/backend/internal/api/http"
	"github.com/GriffinCanCode/EnvForge/backend/internal/api/middleware"
	"github.com/GriffinCanCode/EnvForge/backend/internal/api/ws"
	"github.com/GriffinCanCode/EnvForge/backend/internal/app"
	"github.com/GriffinCanCode/EnvForge/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/EnvForge/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/EnvForge/backend/internal/infrastructure/monitoring"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 10 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	http     *http.Server
	app      *app.App
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
	registry *prometheus.Registry
}

// Options overrides the logger and metrics registry, mainly for tests.
type Options struct {
	Logger   *logging.Logger
	Registry *prometheus.Registry
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	return NewServerWith(cfg, Options{})
}

// NewServerWith creates a server with explicit ambient dependencies.
func NewServerWith(cfg *config.Config, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logCfg := logging.DefaultConfig()
		if cfg.Logging.Development {
			logCfg = logging.DevelopmentConfig()
		}
		if cfg.Logging.Level != "" {
			logCfg.Level = cfg.Logging.Level
		}
		l, err := logging.New(logCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		logger = l
	}

	logger.Info("Initializing EnvForge server",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
		zap.String("collaborator", cfg.Collaborator.Mode),
	)

	// Metrics first, the rest of the stack records into them
	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	metrics := monitoring.NewMetricsWith(registry)

	a, err := app.New(cfg, app.Options{Logger: logger.Logger, Metrics: metrics})
	if err != nil {
		return nil, err
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(logger.Logger))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
			IdleTTL:           middleware.DefaultRateLimitConfig().IdleTTL,
		}))
	}

	handlers := api.NewHandlers(a.Sessions, api.Options{
		Collaborator: cfg.Collaborator.Mode,
		Logger:       logger.Logger,
		Metrics:      metrics,
	})
	handlers.Register(router)

	wsHandler := ws.NewHandler(a.Sessions, logger.Logger, metrics)
	router.GET("/stream", wsHandler.HandleConnection)

	router.GET("/metrics", monitoring.Handler(registry))
	router.GET("/stats", monitoring.StatsHandler(metrics))

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	logger.Info("Server initialized successfully")

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		app:      a,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
		registry: registry,
	}, nil
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	s.logger.Info("Shutting down HTTP server")
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return <-errCh
}

// Close releases resources held by the compiler stack.
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	if err := s.app.Close(); err != nil {
		s.logger.Error("Failed to close session store", zap.Error(err))
		return fmt.Errorf("failed to close session store: %w", err)
	}

	// Sync logger before exit
	_ = s.logger.Sync()

	return nil
}
