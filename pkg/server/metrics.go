package server

import (
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"
)

// Metrics tracks server runtime statistics.
// All counters use atomic operations for lock-free concurrent access.
type Metrics struct {
	startTime time.Time

	// Connection counters
	TotalConnections  atomic.Int64 // lifetime websocket connections accepted
	ActiveConnections atomic.Int64 // current active connections
	FailedAuths       atomic.Int64 // failed authentication attempts
	SuccessfulAuths   atomic.Int64 // successful authentication attempts
	TotalDisconnects  atomic.Int64 // total client disconnects (clean + unclean)

	// Chat counters
	MessagesSent atomic.Int64 // chat messages fanned out to rooms
	WhispersSent atomic.Int64 // private whispers delivered
	CommandsRun  atomic.Int64 // slash-commands dispatched

	// Room counters
	RoomsCreated atomic.Int64 // rooms created during this run
	RoomsDeleted atomic.Int64 // rooms deleted (emptied) during this run

	// Moderation counters
	KickCount atomic.Int64 // users kicked
	BanCount  atomic.Int64 // users banned
	MuteCount atomic.Int64 // mutes applied

	// Poll counters
	PollsCreated atomic.Int64 // polls created
	VotesCast    atomic.Int64 // votes recorded
}

// NewMetrics creates a new Metrics instance with the start time set to now.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),
	}
}

// MetricsSnapshot is a point-in-time view of all metrics as a
// serializable struct.
type MetricsSnapshot struct {
	Uptime        string `json:"uptime"`
	UptimeSeconds int64  `json:"uptime_seconds"`

	ActiveConnections int64 `json:"active_connections"`
	TotalConnections  int64 `json:"total_connections"`
	SuccessfulAuths   int64 `json:"successful_auths"`
	FailedAuths       int64 `json:"failed_auths"`
	TotalDisconnects  int64 `json:"total_disconnects"`

	MessagesSent int64 `json:"messages_sent"`
	WhispersSent int64 `json:"whispers_sent"`
	CommandsRun  int64 `json:"commands_run"`

	RoomsCreated int64 `json:"rooms_created"`
	RoomsDeleted int64 `json:"rooms_deleted"`

	KickCount int64 `json:"kick_count"`
	BanCount  int64 `json:"ban_count"`
	MuteCount int64 `json:"mute_count"`

	PollsCreated int64 `json:"polls_created"`
	VotesCast    int64 `json:"votes_cast"`
}

// Snapshot returns a read-consistent snapshot of all metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	uptime := time.Since(m.startTime)
	return MetricsSnapshot{
		Uptime:            uptime.Truncate(time.Second).String(),
		UptimeSeconds:     int64(uptime.Seconds()),
		ActiveConnections: m.ActiveConnections.Load(),
		TotalConnections:  m.TotalConnections.Load(),
		SuccessfulAuths:   m.SuccessfulAuths.Load(),
		FailedAuths:       m.FailedAuths.Load(),
		TotalDisconnects:  m.TotalDisconnects.Load(),
		MessagesSent:      m.MessagesSent.Load(),
		WhispersSent:      m.WhispersSent.Load(),
		CommandsRun:       m.CommandsRun.Load(),
		RoomsCreated:      m.RoomsCreated.Load(),
		RoomsDeleted:      m.RoomsDeleted.Load(),
		KickCount:         m.KickCount.Load(),
		BanCount:          m.BanCount.Load(),
		MuteCount:         m.MuteCount.Load(),
		PollsCreated:      m.PollsCreated.Load(),
		VotesCast:         m.VotesCast.Load(),
	}
}

// JSON returns the metrics snapshot as a JSON string.
func (m *Metrics) JSON() string {
	data, err := json.MarshalIndent(m.Snapshot(), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// LogSummary writes a periodic metrics summary to the logger.
func (m *Metrics) LogSummary() {
	s := m.Snapshot()
	slog.Info("metrics",
		"uptime", s.Uptime,
		"connections", s.ActiveConnections,
		"total_connections", s.TotalConnections,
		"messages", s.MessagesSent,
		"whispers", s.WhispersSent,
		"commands", s.CommandsRun,
		"rooms_created", s.RoomsCreated,
	)
}

// StartPeriodicLog starts a goroutine that logs metrics every interval.
// It stops when the done channel is closed.
func (m *Metrics) StartPeriodicLog(interval time.Duration, done <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				m.LogSummary()
			}
		}
	}()
}
