// Package api exposes the journal over HTTP with echo.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"discipline-journal/internal/audit"
	"discipline-journal/internal/metrics"
	"discipline-journal/internal/ratelimit"
)

// ServerOption configures Server.
type ServerOption func(*ServerConfig)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	Auth            AuthConfig
	Limits          *ratelimit.Set
	Logger          zerolog.Logger
	Metrics         *metrics.Recorder
	Gatherer        prometheus.Gatherer
	Audit           *audit.Logger
}

// WithAddr sets the listen address.
func WithAddr(addr string) ServerOption {
	return func(c *ServerConfig) { c.Addr = addr }
}

// WithTimeouts sets the read, write and shutdown timeouts.
func WithTimeouts(read, write, shutdown time.Duration) ServerOption {
	return func(c *ServerConfig) {
		c.ReadTimeout = read
		c.WriteTimeout = write
		c.ShutdownTimeout = shutdown
	}
}

// WithCORSOrigins enables CORS for the given origins.
func WithCORSOrigins(origins []string) ServerOption {
	return func(c *ServerConfig) { c.CORSOrigins = origins }
}

// WithAuth sets bearer token verification.
func WithAuth(a AuthConfig) ServerOption {
	return func(c *ServerConfig) { c.Auth = a }
}

// WithRateLimit throttles each user.
func WithRateLimit(s *ratelimit.Set) ServerOption {
	return func(c *ServerConfig) { c.Limits = s }
}

// WithLogger sets the request logger.
func WithLogger(l zerolog.Logger) ServerOption {
	return func(c *ServerConfig) { c.Logger = l }
}

// WithMetrics records HTTP metrics and serves /metrics from g.
func WithMetrics(r *metrics.Recorder, g prometheus.Gatherer) ServerOption {
	return func(c *ServerConfig) {
		c.Metrics = r
		c.Gatherer = g
	}
}

// WithAuditLog records rejected authentication attempts.
func WithAuditLog(a *audit.Logger) ServerOption {
	return func(c *ServerConfig) { c.Audit = a }
}

// Server wraps the echo instance.
type Server struct {
	echo   *echo.Echo
	config *ServerConfig
}

// NewServer creates the HTTP server and mounts the handler.
func NewServer(handler *JournalHandler, opts ...ServerOption) *Server {
	cfg := &ServerConfig{
		Addr:            "127.0.0.1:8080",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		Logger:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout

	e.Use(Recover(cfg.Logger))
	e.Use(RequestLogging(cfg.Logger))
	if cfg.Metrics != nil {
		e.Use(Metrics(cfg.Metrics))
	}
	if len(cfg.CORSOrigins) > 0 {
		e.Use(CORS(CORSConfig{
			AllowOrigins: cfg.CORSOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{
				echo.HeaderOrigin,
				echo.HeaderContentType,
				echo.HeaderAccept,
				echo.HeaderAuthorization,
				HeaderRequestID,
			},
		}))
	}

	if cfg.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	g := e.Group("", Auth(cfg.Auth, cfg.Audit), RateLimit(cfg.Limits))
	if handler != nil {
		handler.RegisterRoutes(e, g)
	}

	return &Server{echo: e, config: cfg}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.config.Logger.Info().Str("addr", s.config.Addr).Msg("HTTP server listening")
		if err := s.echo.Start(s.config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	return s.Stop(shutdownCtx)
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.config.Logger.Info().Msg("HTTP server stopped")
	return nil
}

// Echo returns the underlying echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
