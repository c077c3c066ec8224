package server

import (
	"sync"
	"time"

	"github.com/mlaroche/chatnet/pkg/model"
)

// Conn is the write side of a client connection. Satisfied by
// *websocket.Conn via the wsConn wrapper in handler.go and by fake
// connections in tests.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// Session is the live state of one connected user. At most one session
// exists per user id; a reconnect replaces the connection handle in
// place rather than creating a second entry.
type Session struct {
	UserID   string
	Username string
	Roles    model.RoleSet

	mu       sync.Mutex
	conn     Conn
	status   model.Status
	lastSent map[string]time.Time // room id -> last chat send, for slow mode
}

// Send delivers an event to the session's current connection. Writes are
// serialized: gorilla websocket connections allow only one concurrent
// writer.
func (s *Session) Send(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

// Close closes the session's current connection, ending its read loop.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

// Status returns the session's presence status.
func (s *Session) Status() model.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// SetStatus updates the session's presence status.
func (s *Session) SetStatus(status model.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// LastSent returns the time of the user's previous chat message in the
// room, or zero if none has been recorded.
func (s *Session) LastSent(roomID string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSent[roomID]
}

// MarkSent records a chat send in the room for slow-mode tracking.
func (s *Session) MarkSent(roomID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSent[roomID] = at
}

// SessionManager manages active client sessions keyed by user id.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionManager creates a new session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
	}
}

// Upsert registers a connection for the user. If a session already
// exists its connection handle is replaced and the old handle is closed;
// the old handle receives no further deliveries. Replace-or-insert is
// atomic: concurrent connects for the same user id never yield two
// session entries.
func (sm *SessionManager) Upsert(userID, username string, roles model.RoleSet, conn Conn) *Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sess, ok := sm.sessions[userID]; ok {
		sess.mu.Lock()
		old := sess.conn
		sess.conn = conn
		sess.status = model.StatusOnline
		sess.Roles = roles
		sess.mu.Unlock()
		if old != nil {
			_ = old.Close()
		}
		return sess
	}

	sess := &Session{
		UserID:   userID,
		Username: username,
		Roles:    roles,
		conn:     conn,
		status:   model.StatusOnline,
		lastSent: make(map[string]time.Time),
	}
	sm.sessions[userID] = sess
	return sess
}

// Remove removes the user's session only if conn is still its current
// connection handle. A read loop whose connection was replaced by a
// reconnect calls Remove with the stale handle and gets false, so the
// replacement session survives.
func (sm *SessionManager) Remove(userID string, conn Conn) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sess, ok := sm.sessions[userID]
	if !ok {
		return false
	}
	sess.mu.Lock()
	current := sess.conn
	sess.mu.Unlock()
	if current != conn {
		return false
	}
	delete(sm.sessions, userID)
	return true
}

// Get retrieves a session by user id, or nil.
func (sm *SessionManager) Get(userID string) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[userID]
}

// Count returns the number of active sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// All returns all active sessions (snapshot).
func (sm *SessionManager) All() []*Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	result := make([]*Session, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		result = append(result, s)
	}
	return result
}
