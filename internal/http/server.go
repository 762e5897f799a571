// Package http serves the optional thinkd HTTP sidecar: health, prometheus
// metrics and a read-mostly view of the live reasoning sessions.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/thinkd/internal/features"
	"github.com/fyrsmithlabs/thinkd/internal/logging"
	"github.com/fyrsmithlabs/thinkd/internal/session"
	"github.com/fyrsmithlabs/thinkd/internal/telemetry"
)

// Server provides the sidecar endpoints.
type Server struct {
	echo     *echo.Echo
	sessions *session.Registry
	features *features.Store
	logger   *zap.Logger
	config   *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host    string
	Port    int
	Version string

	// Telemetry, when set, is reported on /health.
	Telemetry *telemetry.Telemetry
}

// NewServer creates the sidecar over the same registry and feature store
// the MCP server uses.
func NewServer(sessions *session.Registry, flags *features.Store, logger *zap.Logger, cfg *Config) (*Server, error) {
	if sessions == nil {
		return nil, errors.New("session registry cannot be nil")
	}
	if flags == nil {
		return nil, errors.New("feature store cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{Host: "127.0.0.1", Port: 9191}
	}
	logger = logger.Named("http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))
	e.Use(NewHTTPMetrics(logger).Middleware())

	s := &Server{
		echo:     e,
		sessions: sessions,
		features: flags,
		logger:   logger,
		config:   cfg,
	}
	s.registerRoutes()
	return s, nil
}

// requestLogger puts the request ID on the request context and logs each
// request at debug level.
func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			ctx := logging.WithRequestID(req.Context(), c.Response().Header().Get(echo.HeaderXRequestID))
			c.SetRequest(req.WithContext(ctx))

			err := next(c)

			logger.Debug("http request", append(logging.ContextFields(ctx),
				zap.String("method", req.Method),
				zap.String("uri", req.RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)...)
			return err
		}
	}
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.GET("/sessions", s.handleListSessions)
	v1.GET("/sessions/:id", s.handleGetSession)
	v1.DELETE("/sessions/:id", s.handleResetSession)
	v1.GET("/features", s.handleGetFeatures)
	v1.PUT("/features/:name", s.handleSetFeature)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{
		Status:   "ok",
		Version:  s.config.Version,
		Sessions: s.sessions.Len(),
	}
	if s.config.Telemetry != nil {
		h := s.config.Telemetry.Health()
		resp.Telemetry = &h
	}
	return c.JSON(http.StatusOK, resp)
}

// view applies the performanceMonitoring toggle to a session view.
func (s *Server) view(v session.View) session.View {
	if s.features.Enabled(features.PerformanceMonitoring) {
		return v
	}
	return v.WithoutMetrics()
}

func (s *Server) handleListSessions(c echo.Context) error {
	views := s.sessions.List()
	for i := range views {
		views[i] = s.view(views[i])
	}
	return c.JSON(http.StatusOK, SessionListResponse{Sessions: views, Count: len(views)})
}

func (s *Server) handleGetSession(c echo.Context) error {
	v, ok := s.sessions.Lookup(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return c.JSON(http.StatusOK, s.view(v))
}

func (s *Server) handleResetSession(c echo.Context) error {
	id := session.Normalize(c.Param("id"))
	existed := s.sessions.Reset(id)
	if !existed {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return c.JSON(http.StatusOK, ResetResponse{SessionID: id, Existed: existed})
}

func (s *Server) handleGetFeatures(c echo.Context) error {
	return c.JSON(http.StatusOK, FeatureResponse{Features: s.features.Snapshot()})
}

func (s *Server) handleSetFeature(c echo.Context) error {
	feature, err := features.ParseFeature(c.Param("name"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var req FeatureRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Enabled == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "enabled field is required")
	}

	flags, err := s.features.Set(feature, *req.Enabled)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	s.logger.Info("feature toggled", zap.String("feature", string(feature)), zap.Bool("enabled", *req.Enabled))
	return c.JSON(http.StatusOK, FeatureResponse{Features: flags})
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}

// Start serves until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting http server", zap.String("addr", s.Addr()))
	if err := s.echo.Start(s.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
