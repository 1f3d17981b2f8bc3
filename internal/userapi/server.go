package userapi

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

// Server is the HTTP server that exposes a Service.
type Server struct {
	svc       *Service
	assets    fs.FS
	logger    *slog.Logger
	keepAlive time.Duration

	mu       sync.Mutex
	http     *http.Server
	listener net.Listener

	done     chan struct{}
	stopOnce sync.Once
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithAssets sets the filesystem the landing page is served from. It must
// contain index.html at its root.
func WithAssets(assets fs.FS) ServerOption {
	return func(s *Server) {
		s.assets = assets
	}
}

// WithServerLogger sets the access and error logger.
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// WithKeepAlive sets the interval between SSE keep-alive comments.
func WithKeepAlive(d time.Duration) ServerOption {
	return func(s *Server) {
		s.keepAlive = d
	}
}

// NewServer creates a server for svc.
func NewServer(svc *Service, opts ...ServerOption) *Server {
	s := &Server{
		svc:       svc,
		logger:    slog.Default(),
		keepAlive: 15 * time.Second,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start binds addr and begins serving in a background goroutine. It returns
// once the listener is open.
func (s *Server) Start(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("userapi: listen %s: %w", addr, err)
	}
	hs := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	s.mu.Lock()
	s.listener = ln
	s.http = hs
	s.mu.Unlock()

	go func() {
		if err := hs.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("userapi: serve failed", "addr", ln.Addr().String(), "error", err)
		}
	}()

	s.logger.Info("userapi: listening", "addr", ln.Addr().String())
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

// Stop ends open event streams and gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.done) })

	s.mu.Lock()
	hs := s.http
	s.mu.Unlock()
	if hs == nil {
		return nil
	}
	return hs.Shutdown(ctx)
}

// Serve runs the server on addr until ctx is cancelled, then shuts down
// within shutdownTimeout.
func (s *Server) Serve(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	if err := s.Start(ctx, addr); err != nil {
		return err
	}
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("userapi: shutdown: %w", err)
	}
	s.logger.Info("userapi: stopped")
	return nil
}
