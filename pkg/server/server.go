// Package server implements the chatnet room runtime: the session
// registry, room table, broadcast fanout, moderation engine, poll
// subsystem, and the websocket connection handler that ties them
// together.
package server

import (
	"context"
	"net/http"

	"github.com/mlaroche/chatnet/pkg/auth"
	"github.com/mlaroche/chatnet/pkg/store"
)

// Dependencies holds external dependencies for the server.
// Server assumes ownership of Store and will Close() it on shutdown.
type Dependencies struct {
	Store   store.DataStore
	Tokens  *auth.Manager
	Ambient Responder // nil disables ambient responses
}

// Server is the chatnet server.
type Server struct {
	cfg      Config
	sessions *SessionManager
	rooms    *RoomManager
	metrics  *Metrics
	store    store.DataStore
	tokens   *auth.Manager
	ambient  Responder
	cmds     map[string]command
	httpSrv  *http.Server
	ctx      context.Context
	cancel   context.CancelFunc
}

// New creates a new Server instance.
func New(cfg Config, deps Dependencies) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:      cfg,
		sessions: NewSessionManager(),
		rooms:    NewRoomManager(deps.Store),
		metrics:  NewMetrics(),
		store:    deps.Store,
		tokens:   deps.Tokens,
		ambient:  deps.Ambient,
		ctx:      ctx,
		cancel:   cancel,
	}
	s.cmds = builtinCommands()
	return s
}

// Rooms returns the room manager.
func (s *Server) Rooms() *RoomManager {
	return s.rooms
}

// Sessions returns the session manager.
func (s *Server) Sessions() *SessionManager {
	return s.sessions
}

// Metrics returns the server metrics.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}
