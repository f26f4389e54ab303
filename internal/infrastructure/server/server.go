package server

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	api "github.com/GriffinCanCode/tracestat/internal/api/http"
	"github.com/GriffinCanCode/tracestat/internal/api/middleware"
	"github.com/GriffinCanCode/tracestat/internal/domain/parser"
	"github.com/GriffinCanCode/tracestat/internal/domain/run"
	"github.com/GriffinCanCode/tracestat/internal/infrastructure/config"
	"github.com/GriffinCanCode/tracestat/internal/infrastructure/logging"
	"github.com/GriffinCanCode/tracestat/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/tracestat/internal/infrastructure/tracing"
)

// ShutdownTimeout bounds how long in-flight requests may finish on shutdown
const ShutdownTimeout = 15 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	http     *http.Server
	handlers *api.Handlers
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, logger *logging.Logger, metrics *monitoring.Metrics) (*Server, error) {
	if logger == nil {
		logger = logging.NewDefault()
	}
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}

	logger.Info("Initializing report server",
		zap.String("addr", cfg.Addr()),
		zap.String("data_root", cfg.Server.DataRoot),
	)

	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}
	opts, err := cfg.ParserOptions()
	if err != nil {
		return nil, err
	}

	aggregator := run.NewAggregator(parser.New(opts), policy).
		WithPatterns(Patterns(cfg)).
		WithWorkers(cfg.Analysis.Workers).
		WithLogger(logger).
		WithMetrics(metrics)

	handlers, err := api.NewHandlers(aggregator, cfg.Server.DataRoot, metrics, logger)
	if err != nil {
		return nil, err
	}
	handlers.WithCache(cfg.Server.CacheTTL)

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracing.New("tracestat", logger)))
	router.Use(monitoring.Middleware(metrics))
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.Origins = cfg.Server.CORSOrigins
	router.Use(middleware.CORS(corsCfg))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		limits := middleware.DefaultRateLimitConfig()
		limits.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		limits.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(limits))
	}

	// Register routes
	handlers.Register(router)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/metrics/json", func(c *gin.Context) {
		c.JSON(http.StatusOK, metrics.Snapshot())
	})

	logger.Info("Server initialized successfully")

	return &Server{
		router:   router,
		handlers: handlers,
		http: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}, nil
}

// Patterns returns the discovery patterns named by cfg
func Patterns(cfg *config.Config) run.Patterns {
	return run.Patterns{
		Interval: cfg.Discovery.IntervalPattern,
		Timing:   cfg.Discovery.TimingPattern,
	}
}

// Handler exposes the router for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then drains in-flight requests
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	return s.Close(shutdownCtx)
}

// Close gracefully shuts down the server
func (s *Server) Close(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shut down HTTP server", zap.Error(err))
		return errors.Wrap(err, "shutdown http server")
	}
	s.handlers.Close()

	if path := s.config.Metrics.File; path != "" {
		if err := s.metrics.WriteTextfile(path); err != nil {
			s.logger.Warn("Failed to write metrics file", zap.String("path", path), zap.Error(err))
		}
	}

	// Sync logger before exit
	_ = s.logger.Sync()
	return nil
}
