package server

import "log/slog"

// broadcastToRoom delivers an event to every live member of the room
// except the excluded ids. Delivery is best-effort and at-most-once per
// currently connected member: offline members simply miss the event, and
// a failed write is logged, never retried.
func (s *Server) broadcastToRoom(roomID string, event any, exclude ...string) {
	for _, memberID := range s.rooms.Members(roomID) {
		if excluded(exclude, memberID) {
			continue
		}
		sess := s.sessions.Get(memberID)
		if sess == nil {
			continue
		}
		if err := sess.Send(event); err != nil {
			slog.Debug("broadcast send failed", "room", roomID, "user", memberID, "err", err)
		}
	}
}

// broadcastToAll delivers an event to every live session regardless of
// room membership. Used for room added/removed announcements.
func (s *Server) broadcastToAll(event any, exclude ...string) {
	for _, sess := range s.sessions.All() {
		if excluded(exclude, sess.UserID) {
			continue
		}
		if err := sess.Send(event); err != nil {
			slog.Debug("broadcast send failed", "user", sess.UserID, "err", err)
		}
	}
}

// sendTo delivers an event to one user if connected. Offline targets are
// silently skipped.
func (s *Server) sendTo(userID string, event any) {
	sess := s.sessions.Get(userID)
	if sess == nil {
		return
	}
	if err := sess.Send(event); err != nil {
		slog.Debug("direct send failed", "user", userID, "err", err)
	}
}

func excluded(ids []string, id string) bool {
	for _, have := range ids {
		if have == id {
			return true
		}
	}
	return false
}
