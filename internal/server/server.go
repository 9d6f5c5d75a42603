// Package server exposes an agent.Registry over JSON/HTTP and provides a
// typed client for the same surface.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dusk-indust/enigma/internal/agent"
	"github.com/dusk-indust/enigma/internal/telemetry"
)

// Server is the HTTP server that exposes the agent registry.
type Server struct {
	registry       *agent.Registry
	logger         *slog.Logger
	version        string
	tracerProvider trace.TracerProvider
	tracer         trace.Tracer

	mcpPath    string
	mcpHandler http.Handler

	readTimeout     time.Duration
	writeTimeout    time.Duration
	shutdownTimeout time.Duration

	mu       sync.Mutex
	http     *http.Server
	listener net.Listener
	serveErr chan error
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithVersion sets the version reported by /healthz.
func WithVersion(version string) Option {
	return func(s *Server) { s.version = version }
}

// WithTracerProvider sets the provider used for request and agent spans.
// The default is the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Server) { s.tracerProvider = tp }
}

// WithMCPHandler mounts an MCP transport handler at path.
func WithMCPHandler(path string, h http.Handler) Option {
	return func(s *Server) {
		s.mcpPath = path
		s.mcpHandler = h
	}
}

// WithTimeouts sets the read, write and graceful-shutdown timeouts. Zero
// values leave the corresponding default in place.
func WithTimeouts(read, write, shutdown time.Duration) Option {
	return func(s *Server) {
		if read > 0 {
			s.readTimeout = read
		}
		if write > 0 {
			s.writeTimeout = write
		}
		if shutdown > 0 {
			s.shutdownTimeout = shutdown
		}
	}
}

// New creates a Server backed by registry.
func New(registry *agent.Registry, opts ...Option) *Server {
	s := &Server{
		registry:        registry,
		logger:          slog.Default(),
		version:         "dev",
		readTimeout:     15 * time.Second,
		writeTimeout:    30 * time.Second,
		shutdownTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracerProvider == nil {
		s.tracerProvider = otel.GetTracerProvider()
	}
	s.tracer = s.tracerProvider.Tracer(telemetry.InstrumentationName)
	s.logger = s.logger.With("component", "server")
	return s
}

// Handler returns the fully wrapped HTTP handler, for use with httptest or
// a caller-managed http.Server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /agents", s.handleListAgents)
	mux.HandleFunc("GET /agents/{name}", s.handleGetAgent)
	mux.HandleFunc("POST /agents/{name}/process", s.handleProcess)

	if s.mcpHandler != nil {
		mux.Handle(s.mcpPath, s.mcpHandler)
	}

	var h http.Handler = mux
	h = s.accessLog(h)
	h = requestID(h)
	return otelhttp.NewHandler(h, "enigma",
		otelhttp.WithTracerProvider(s.tracerProvider),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// Start binds addr and serves in a background goroutine. It returns once the
// listener is open, so a bind failure is reported to the caller.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.http != nil {
		return errors.New("server already started")
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	s.listener = ln
	s.serveErr = make(chan error, 1)
	s.http = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
	}

	s.logger.Info("listening", "addr", ln.Addr().String(), "agents", s.registry.Len(), "mcp", s.mcpHandler != nil)

	srv, errc := s.http, s.serveErr
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.http
	s.http = nil
	s.listener = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	s.logger.Info("shutting down")
	return srv.Shutdown(ctx)
}

// Run serves on addr until ctx is cancelled or the server fails, then shuts
// down within the configured shutdown timeout.
func (s *Server) Run(ctx context.Context, addr string) error {
	if err := s.Start(ctx, addr); err != nil {
		return err
	}

	s.mu.Lock()
	errc := s.serveErr
	s.mu.Unlock()

	select {
	case <-ctx.Done():
	case err, ok := <-errc:
		if ok && err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	return s.Stop(shutdownCtx)
}
