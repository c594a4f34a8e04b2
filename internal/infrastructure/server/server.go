package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	httpapi "github.com/GriffinCanCode/PageCapture/backend/internal/api/http"
	"github.com/GriffinCanCode/PageCapture/backend/internal/api/middleware"
	"github.com/GriffinCanCode/PageCapture/backend/internal/api/ws"
	"github.com/GriffinCanCode/PageCapture/backend/internal/domain/capture"
	"github.com/GriffinCanCode/PageCapture/backend/internal/domain/dispatch"
	"github.com/GriffinCanCode/PageCapture/backend/internal/domain/pipeline"
	"github.com/GriffinCanCode/PageCapture/backend/internal/domain/stitch"
	"github.com/GriffinCanCode/PageCapture/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/PageCapture/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/PageCapture/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/PageCapture/backend/internal/providers/browser"
	"github.com/GriffinCanCode/PageCapture/backend/internal/store"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	config     *config.Config
	logger     *logging.Logger
	router     *gin.Engine
	httpServer *http.Server
	dispatcher *dispatch.Dispatcher
	metrics    *monitoring.Metrics
	renderer   capture.Renderer
	store      store.StatusStore
}

// Option customizes server construction.
type Option func(*options)

type options struct {
	logger   *logging.Logger
	renderer capture.Renderer
	store    store.StatusStore
}

// WithLogger uses l instead of a logger built from the config.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRenderer uses r instead of connecting to a browser.
func WithRenderer(r capture.Renderer) Option {
	return func(o *options) { o.renderer = r }
}

// WithStatusStore uses s instead of the Redis store from the config.
func WithStatusStore(s store.StatusStore) Option {
	return func(o *options) { o.store = s }
}

// New creates a new server instance
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Server, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		l, err := logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			Development: cfg.Logging.Development,
		})
		if err != nil {
			return nil, err
		}
		logger = l
	}

	logger.Info("Initializing page capture server",
		zap.String("addr", cfg.Server.Addr()),
		zap.Int("max_concurrent", cfg.Dispatch.MaxConcurrent),
	)

	metrics := monitoring.NewMetrics()

	renderer := o.renderer
	if renderer == nil {
		r, err := browser.New(ctx, browser.Config{
			ControlURL:     cfg.Renderer.ControlURL,
			Headless:       cfg.Renderer.Headless,
			ViewportWidth:  cfg.Renderer.ViewportWidth,
			ViewportHeight: cfg.Renderer.ViewportHeight,
			JPEGQuality:    cfg.Renderer.JPEGQuality,
			Breaker:        browser.DefaultConfig().Breaker,
		}, logger.Component("browser"))
		if err != nil {
			metrics.Close()
			return nil, fmt.Errorf("failed to start renderer: %w", err)
		}
		renderer = r
	}

	// The status store is optional; the service runs without it.
	statusStore := o.store
	if statusStore == nil && cfg.Store.Enabled() {
		rs := store.NewRedisStatusStore(cfg.Store.RedisAddr, cfg.Store.Prefix, cfg.Store.TTL)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rs.Ping(pingCtx)
		cancel()
		if err != nil {
			logger.Warn("Status store unavailable, job lookup disabled",
				zap.String("addr", cfg.Store.RedisAddr),
				zap.Error(err),
			)
			_ = rs.Close()
		} else {
			logger.Info("Connected to status store", zap.String("addr", cfg.Store.RedisAddr))
			statusStore = rs
		}
	}

	runner := pipeline.New(renderer, stitch.New(cfg.Stitch.JPEGQuality),
		pipeline.WithLogger(logger.Component("pipeline")),
	)

	dispatchOpts := []dispatch.Option{
		dispatch.WithLogger(logger.Component("dispatch")),
		dispatch.WithObserver(metrics),
	}
	if statusStore != nil {
		dispatchOpts = append(dispatchOpts, dispatch.WithObserver(store.NewRecorder(statusStore, logger.Component("store"))))
	}
	dispatcher, err := dispatch.New(runner, cfg.Dispatch.MaxConcurrent, dispatchOpts...)
	if err != nil {
		closeRenderer(renderer)
		metrics.Close()
		return nil, err
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	handlers := httpapi.NewHandlers(dispatcher, statusStore, metrics, logger.Component("http"))
	wsCfg := ws.DefaultConfig()
	wsCfg.MessagesPerSecond = cfg.Stream.MessagesPerSecond
	wsCfg.MessageBurst = cfg.Stream.MessageBurst
	wsHandler := ws.NewHandler(dispatcher, metrics, logger.Component("ws"), wsCfg)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/stats", handlers.Stats)

	router.POST("/captures", handlers.Capture)
	router.GET("/jobs/:id", handlers.JobStatus)

	router.GET("/stream", wsHandler.HandleConnection)

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	logger.Info("Server initialized successfully")

	return &Server{
		config:     cfg,
		logger:     logger,
		router:     router,
		dispatcher: dispatcher,
		metrics:    metrics,
		renderer:   renderer,
		store:      statusStore,
		httpServer: &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until Shutdown is called.
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections, drains running capture jobs until
// ctx expires and releases the browser and the status store.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}

	stats := s.dispatcher.Stats()
	if err := s.dispatcher.Close(ctx); err != nil {
		s.logger.Warn("Running jobs cancelled", zap.Int("active", stats.Active), zap.Error(err))
		errs = append(errs, fmt.Errorf("dispatcher: %w", err))
	} else {
		s.logger.Info("Dispatcher drained", zap.Int("dropped", stats.Pending))
	}

	if err := closeRenderer(s.renderer); err != nil {
		s.logger.Error("Failed to close renderer", zap.Error(err))
		errs = append(errs, fmt.Errorf("renderer: %w", err))
	}
	if c, ok := s.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			s.logger.Error("Failed to close status store", zap.Error(err))
		}
	}

	s.metrics.Close()
	_ = s.logger.Sync()
	return errors.Join(errs...)
}

func closeRenderer(r capture.Renderer) error {
	if c, ok := r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
