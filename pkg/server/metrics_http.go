package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// StartMetricsHTTP starts a lightweight HTTP server that exposes /metrics
// in Prometheus text exposition format. It runs in the background and
// shuts down when the server context is cancelled.
//
// Bind address is :8081 by default, configurable via Config.MetricsAddr.
func (s *Server) StartMetricsHTTP() {
	addr := s.cfg.MetricsAddr
	if addr == "" {
		return // metrics endpoint disabled
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("metrics HTTP listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics HTTP error", "err", err)
		}
	}()

	go func() {
		<-s.ctx.Done()
		_ = srv.Close()
	}()
}

// handleMetrics writes all metrics in Prometheus text exposition format.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	m := s.metrics
	uptime := time.Since(m.startTime).Seconds()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	// Helper for gauge/counter lines.
	// Write errors to http.ResponseWriter are non-actionable; suppress errcheck.
	write := func(name, help, mtype string, value int64) {
		_, _ = fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		_, _ = fmt.Fprintf(w, "# TYPE %s %s\n", name, mtype)
		_, _ = fmt.Fprintf(w, "%s %d\n", name, value)
	}
	writeFloat := func(name, help, mtype string, value float64) {
		_, _ = fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		_, _ = fmt.Fprintf(w, "# TYPE %s %s\n", name, mtype)
		_, _ = fmt.Fprintf(w, "%s %f\n", name, value)
	}

	writeFloat("chatnet_uptime_seconds", "Server uptime in seconds.", "gauge", uptime)

	write("chatnet_connections_active", "Current active websocket connections.", "gauge",
		m.ActiveConnections.Load())
	write("chatnet_connections_total", "Lifetime websocket connections accepted.", "counter",
		m.TotalConnections.Load())
	write("chatnet_disconnects_total", "Total client disconnects.", "counter",
		m.TotalDisconnects.Load())

	write("chatnet_auth_success_total", "Successful authentication attempts.", "counter",
		m.SuccessfulAuths.Load())
	write("chatnet_auth_failed_total", "Failed authentication attempts.", "counter",
		m.FailedAuths.Load())

	write("chatnet_messages_total", "Chat messages fanned out to rooms.", "counter",
		m.MessagesSent.Load())
	write("chatnet_whispers_total", "Private whispers delivered.", "counter",
		m.WhispersSent.Load())
	write("chatnet_commands_total", "Slash-commands dispatched.", "counter",
		m.CommandsRun.Load())

	write("chatnet_rooms_created_total", "Rooms created.", "counter",
		m.RoomsCreated.Load())
	write("chatnet_rooms_deleted_total", "Rooms deleted.", "counter",
		m.RoomsDeleted.Load())

	write("chatnet_kicks_total", "Users kicked.", "counter",
		m.KickCount.Load())
	write("chatnet_bans_total", "Users banned.", "counter",
		m.BanCount.Load())
	write("chatnet_mutes_total", "Mutes applied.", "counter",
		m.MuteCount.Load())

	write("chatnet_polls_created_total", "Polls created.", "counter",
		m.PollsCreated.Load())
	write("chatnet_votes_total", "Poll votes recorded.", "counter",
		m.VotesCast.Load())
}
