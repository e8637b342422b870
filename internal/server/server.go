// Package server constructs and starts the blahchat HTTP service with helpers
// that apply sensible production defaults.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Tyrowin/blahchat/internal/config"
	"github.com/Tyrowin/blahchat/internal/hub"
	"github.com/Tyrowin/blahchat/internal/metrics"
)

// Server ties the hub to its HTTP endpoints.
type Server struct {
	cfg      *config.Config
	hub      *hub.Hub
	logger   *slog.Logger
	origins  *originPolicy
	upgrader websocket.Upgrader
	gatherer prometheus.Gatherer
	http     *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for the server and its hub.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New builds a server from cfg. Metrics are registered on a private registry
// when enabled so several servers can coexist in one process.
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s := &Server{
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	hubOpts := []hub.Option{
		hub.WithLogger(s.logger),
		hub.WithQueueLimit(cfg.QueueLimit),
		hub.WithRateLimit(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval),
	}

	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m, err := metrics.New(reg)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		s.gatherer = reg
		hubOpts = append(hubOpts, hub.WithMetrics(m))
	}

	s.hub = hub.New(hubOpts...)
	s.origins = newOriginPolicy(cfg.AllowedOrigins, s.logger)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.origins.check,
	}
	s.http = CreateServer(cfg.Port, s.Routes())

	return s, nil
}

// Hub returns the hub serving this server's connections.
func (s *Server) Hub() *hub.Hub {
	return s.hub
}

// CreateServer creates and configures an HTTP server with the specified port and handler.
// It sets reasonable timeout values for production use. Upgraded WebSocket
// connections are not subject to these timeouts.
func CreateServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// ListenAndServe listens on the configured port and blocks until the server
// stops. It returns nil after a graceful Shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info("server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting HTTP requests, then closes every WebSocket
// connection and waits for the hub to drain, or for ctx to end.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")

	httpErr := s.http.Shutdown(ctx)
	if httpErr != nil {
		s.logger.Error("http server shutdown error", "error", httpErr)
	}
	hubErr := s.hub.Shutdown(ctx)

	return errors.Join(httpErr, hubErr)
}
