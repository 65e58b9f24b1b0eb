package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/siva-ai/governor/internal/domain/auth"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

// Server is the HTTP transport for the governance API.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// ServerOptions configures the HTTP transport.
type ServerOptions struct {
	Addr     string
	Handler  *Handler
	Health   *HealthHandler
	Metrics  *Metrics
	Registry *prometheus.Registry
	Keyring  *auth.Keyring
	Tracer   trace.Tracer
	Logger   *slog.Logger
}

// NewServer assembles the route table and middleware chain.
func NewServer(opts ServerOptions) *Server {
	mux := opts.Handler.Routes()
	mux.Handle("GET /healthz", opts.Health)
	mux.Handle("GET /metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))

	var handler http.Handler = mux
	handler = LogMiddleware(opts.Logger)(handler)
	handler = AuthMiddleware(opts.Keyring, opts.Logger)(handler)
	if opts.Tracer != nil {
		handler = TraceMiddleware(opts.Tracer)(handler)
	}
	handler = MetricsMiddleware(opts.Metrics)(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              opts.Addr,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		logger: opts.Logger,
	}
}

// Start begins serving. Blocks until the listener fails or Shutdown is
// called; a clean shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
