// Package api provides the RecipeBot HTTP server: a health check, the
// Twilio inbound webhook and a read-only favorites endpoint for operators.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/BTreeMap/RecipeBot/internal/store"
)

// Constants for the API server
const (
	// DefaultAddr is the listen address used when none is configured; loopback only,
	// since /favorites is unauthenticated
	DefaultAddr = "127.0.0.1:8080"
	// DefaultShutdownTimeout bounds graceful shutdown
	DefaultShutdownTimeout = 5 * time.Second
	// DefaultReadHeaderTimeout guards against slow clients
	DefaultReadHeaderTimeout = 10 * time.Second
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr    string
	Webhook http.Handler // Twilio inbound webhook, optional
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// WithTwilioWebhook mounts the Twilio inbound webhook at POST /twilio/webhook.
func WithTwilioWebhook(h http.Handler) Option {
	return func(o *Opts) {
		o.Webhook = h
	}
}

// Server is the RecipeBot HTTP server.
type Server struct {
	addr    string
	store   store.FavoritesStore
	mux     *http.ServeMux
	started time.Time
}

// NewServer creates a server backed by the favorites store.
func NewServer(st store.FavoritesStore, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr}
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &Server{addr: cfg.Addr, store: st, mux: http.NewServeMux(), started: time.Now()}
	s.mux.HandleFunc("GET /healthz", s.healthHandler)
	s.mux.HandleFunc("GET /favorites/{userID}", s.favoritesHandler)
	if cfg.Webhook != nil {
		s.mux.Handle("POST /twilio/webhook", cfg.Webhook)
		slog.Debug("Server: Twilio webhook mounted", "path", "/twilio/webhook")
	}
	return s
}

// Handler returns the server's request router.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		slog.Error("Server.Run: failed to listen", "error", err, "addr", s.addr)
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s.mux, ReadHeaderTimeout: DefaultReadHeaderTimeout}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	slog.Info("API server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		slog.Error("Server.Serve: server failed", "error", err)
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server.Serve: graceful shutdown failed", "error", err)
		return err
	}
	slog.Info("API server stopped")
	return nil
}
