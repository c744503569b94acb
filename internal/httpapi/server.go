package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"vidfetch/internal/logging"
)

// Server defaults.
const (
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultShutdownTimeout   = 30 * time.Second
)

// ServerOptions configures the listener.
type ServerOptions struct {
	Bind              string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	Logger            *slog.Logger
}

// Server owns the HTTP listener.
type Server struct {
	bind            string
	shutdownTimeout time.Duration
	logger          *slog.Logger

	listener net.Listener
	server   *http.Server
	errs     chan error
}

// NewServer prepares a server for handler. Downloads stream for as long as the
// client reads, so no write timeout is set.
func NewServer(handler http.Handler, opts ServerOptions) (*Server, error) {
	bind := strings.TrimSpace(opts.Bind)
	if bind == "" {
		return nil, errors.New("server bind address is required")
	}
	readHeader := opts.ReadHeaderTimeout
	if readHeader <= 0 {
		readHeader = DefaultReadHeaderTimeout
	}
	shutdown := opts.ShutdownTimeout
	if shutdown <= 0 {
		shutdown = DefaultShutdownTimeout
	}
	return &Server{
		bind:            bind,
		shutdownTimeout: shutdown,
		logger:          logging.NewComponentLogger(opts.Logger, "http"),
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: readHeader,
			IdleTimeout:       60 * time.Second,
		},
		errs: make(chan error, 1),
	}, nil
}

// Start listens and serves in the background.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}
	s.listener = listener
	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errs <- err
		}
		close(s.errs)
	}()
	s.logger.Info("http server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr is the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

// Errors reports a fatal serve error; it is closed when serving stops.
func (s *Server) Errors() <-chan error { return s.errs }

// Shutdown stops accepting connections and waits for in-flight requests up to
// the shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}
