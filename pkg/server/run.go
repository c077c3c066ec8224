package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mlaroche/chatnet/pkg/httpapi"
	"github.com/mlaroche/chatnet/pkg/version"
)

// Run starts the server and blocks until shutdown signal.
func (s *Server) Run() error {
	if s.store == nil {
		return fmt.Errorf("server: missing store dependency")
	}
	if s.tokens == nil {
		return fmt.Errorf("server: missing token manager dependency")
	}
	defer func() { _ = s.store.Close() }()

	// Bootstrap rooms from YAML config if provided
	if s.cfg.RoomsFile != "" {
		if err := LoadRoomsFromYAML(s.cfg.RoomsFile, s.store); err != nil {
			slog.Error("failed to load rooms config", "err", err)
		}
	}

	if err := s.rooms.Load(); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleWS)
	httpapi.New(s.store, s.tokens, s.rooms, s.sessions).Register(mux)

	s.httpSrv = &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("chatnet server running", "addr", s.cfg.ListenAddr, "version", version.String())
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Start Prometheus metrics HTTP endpoint
	s.StartMetricsHTTP()

	// Start periodic metrics logging (every 60s)
	s.metrics.StartPeriodicLog(60*time.Second, s.ctx.Done())

	// Wait for shutdown signal or listener failure
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		s.Shutdown()
		return fmt.Errorf("server: listen: %w", err)
	case <-sigCh:
	}

	slog.Info("shutting down...")
	s.Shutdown()
	return nil
}

// Shutdown gracefully stops the server: the listener stops accepting,
// live websocket connections are closed, background timers are released.
func (s *Server) Shutdown() {
	s.cancel()

	if s.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(ctx)
	}

	// Hijacked websocket connections outlive http.Server.Shutdown.
	for _, sess := range s.sessions.All() {
		_ = sess.Close()
	}
}
