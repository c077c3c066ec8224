package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mlaroche/chatnet/pkg/model"
	"github.com/mlaroche/chatnet/pkg/protocol"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients connect from arbitrary origins; auth is the token.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsConn adapts *websocket.Conn to the Conn interface.
type wsConn struct {
	*websocket.Conn
}

// HandleWS upgrades an authenticated websocket connection and runs its
// read loop. The bearer token travels as a ?token= query parameter;
// globally banned accounts are rejected before the upgrade.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	ident, err := s.tokens.Authenticate(r.URL.Query().Get("token"))
	if err != nil {
		s.metrics.FailedAuths.Add(1)
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	banned, err := s.store.IsBanned(ident.ID)
	if err != nil {
		slog.Error("ban lookup", "user", ident.ID, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if banned {
		s.metrics.FailedAuths.Add(1)
		http.Error(w, "account banned", http.StatusForbidden)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("websocket upgrade failed", "err", err)
		return
	}
	conn := &wsConn{ws}

	s.metrics.SuccessfulAuths.Add(1)
	s.metrics.TotalConnections.Add(1)
	s.metrics.ActiveConnections.Add(1)
	defer s.metrics.ActiveConnections.Add(-1)

	sess := s.sessions.Upsert(ident.ID, ident.Username, ident.Roles, conn)
	slog.Info("user connected", "user", ident.Username)

	_ = sess.Send(protocol.NewConnected(ident.ID, ident.Username))

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			break
		}
		env, err := protocol.Decode(data)
		if err != nil {
			s.sendError(sess, "Invalid message format")
			continue
		}
		s.dispatch(sess, env)
	}

	s.disconnect(sess, conn)
}

// disconnect tears the session down and treats the departure as an
// explicit leave of every room the user was in. A read loop whose
// connection was replaced by a reconnect skips the teardown entirely.
func (s *Server) disconnect(sess *Session, conn Conn) {
	if !s.sessions.Remove(sess.UserID, conn) {
		return
	}
	s.metrics.TotalDisconnects.Add(1)
	slog.Info("user disconnected", "user", sess.Username)

	for _, roomID := range s.rooms.RoomsOf(sess.UserID) {
		s.leaveRoom(sess.UserID, sess.Username, roomID)
	}
}

// dispatch routes an inbound event by type. Each handler validates room
// membership and state on its own before mutating anything.
func (s *Server) dispatch(sess *Session, env *protocol.Envelope) {
	switch env.Type {
	case protocol.TypeMessage:
		s.handleChatMessage(sess, env)
	case protocol.TypeWhisper:
		s.handleWhisper(sess, env)
	case protocol.TypeCreateRoom:
		s.handleCreateRoom(sess, env)
	case protocol.TypeJoinRoom:
		s.handleJoinRoom(sess, env)
	case protocol.TypeLeaveRoom:
		s.handleLeaveRoom(sess, env)
	case protocol.TypeUpdateRoomSettings:
		s.handleUpdateRoomSettings(sess, env)
	case protocol.TypeGetRoomMembers:
		s.handleGetRoomMembers(sess, env)
	case protocol.TypeStatusUpdate:
		s.handleStatusUpdate(sess, env)
	case protocol.TypeTyping:
		s.handleTyping(sess, env)
	case protocol.TypeVotePoll:
		s.handleVotePoll(sess, env)
	default:
		slog.Debug("unhandled event type", "type", env.Type, "user", sess.Username)
	}
}

func (s *Server) sendError(sess *Session, message string) {
	_ = sess.Send(protocol.NewError(message))
}

func (s *Server) handleChatMessage(sess *Session, env *protocol.Envelope) {
	if env.RoomID == "" || env.Content == "" {
		s.sendError(sess, "Invalid message format")
		return
	}

	room, err := s.rooms.Snapshot(env.RoomID)
	if err != nil {
		s.sendError(sess, "Room not found")
		return
	}
	if !room.IsMember(sess.UserID) {
		s.sendError(sess, "You are not a member of this room")
		return
	}

	now := time.Now()
	if remaining := room.MuteRemaining(sess.UserID, now); remaining > 0 {
		s.sendError(sess, (&model.MutedError{Remaining: remaining}).Error())
		return
	}

	if room.Settings.SlowMode {
		delay := room.Settings.SlowModeDelay
		if delay <= 0 {
			delay = model.RoomDefaultSlowModeDelay
		}
		cooldown := time.Duration(delay) * time.Second
		if last := sess.LastSent(room.ID); !last.IsZero() && now.Sub(last) < cooldown {
			s.sendError(sess, (&model.SlowModeError{Remaining: cooldown - now.Sub(last)}).Error())
			return
		}
		sess.MarkSent(room.ID, now)
	}

	if strings.HasPrefix(env.Content, "/") {
		res := s.processCommand(sess, room, env.Content)
		_ = sess.Send(protocol.NewCommandResponse(res.message, res.sender))
		if !res.silent {
			s.broadcastToRoom(room.ID, protocol.NewAIMessage(res.sender, res.message, time.Now()))
		}
		return
	}

	s.metrics.MessagesSent.Add(1)
	s.broadcastToRoom(room.ID, protocol.NewChatMessage(
		protocol.UserRef{ID: sess.UserID, Username: sess.Username}, env.Content, now))

	if room.Settings.AIEnabled && s.ambient != nil {
		if reply, delay, ok := s.ambient.React(room.ID); ok {
			roomID := room.ID
			time.AfterFunc(delay, func() {
				s.broadcastToRoom(roomID, protocol.NewAIMessage(aiSenderName, reply, time.Now()))
			})
		}
	}
}

func (s *Server) handleWhisper(sess *Session, env *protocol.Envelope) {
	if env.TargetID == "" || env.Content == "" {
		s.sendError(sess, "Invalid whisper format")
		return
	}

	target := s.sessions.Get(env.TargetID)
	if target == nil {
		s.sendError(sess, "User is not online")
		return
	}

	targetUser, err := s.store.GetUserByID(env.TargetID)
	if err != nil {
		slog.Error("whisper target lookup", "user", env.TargetID, "err", err)
	}
	if targetUser != nil && targetUser.HasBlocked(sess.UserID) {
		s.sendError(sess, "Cannot send message to this user")
		return
	}

	s.metrics.WhispersSent.Add(1)
	_ = target.Send(protocol.NewWhisper(
		protocol.UserRef{ID: sess.UserID, Username: sess.Username}, env.Content))
	_ = sess.Send(protocol.NewWhisperSent(
		protocol.UserRef{ID: target.UserID, Username: target.Username}, env.Content))
}

func (s *Server) handleCreateRoom(sess *Session, env *protocol.Envelope) {
	if env.RoomData == nil {
		s.sendError(sess, "Invalid room data")
		return
	}
	if strings.TrimSpace(env.RoomData.Name) == "" {
		s.sendError(sess, "Room name is required")
		return
	}

	room, err := s.rooms.Create(sess.UserID, *env.RoomData)
	if err != nil {
		s.sendError(sess, err.Error())
		return
	}
	s.metrics.RoomsCreated.Add(1)
	slog.Info("room created", "room", room.ID, "name", room.Name, "owner", sess.Username)

	summary := protocol.RoomSummary{
		ID:          room.ID,
		Name:        room.Name,
		Description: room.Description,
		MemberCount: 1,
		IsPrivate:   room.IsPrivate,
	}
	_ = sess.Send(protocol.NewRoomCreated(summary))

	summary.Owner = sess.Username
	s.broadcastToAll(protocol.NewRoomAdded(summary))

	_ = sess.Send(protocol.NewRoomJoined(room.ID, room.Name, room.Description, room.IsPrivate,
		room.Settings, []protocol.MemberInfo{{
			ID:       sess.UserID,
			Username: sess.Username,
			Status:   string(sess.Status()),
			IsOwner:  true,
			IsHost:   true,
			Roles:    sess.Roles.Strings(),
		}}))
}

func (s *Server) handleJoinRoom(sess *Session, env *protocol.Envelope) {
	if env.RoomID == "" {
		s.sendError(sess, "Room ID is required")
		return
	}

	room, _, err := s.rooms.Join(env.RoomID, sess.UserID, env.Password)
	switch {
	case errors.Is(err, model.ErrRoomNotFound):
		s.sendError(sess, "Room not found")
		return
	case errors.Is(err, model.ErrRoomFull):
		s.sendError(sess, "Room is full")
		return
	case errors.Is(err, model.ErrBanned):
		s.sendError(sess, "You are banned from this room")
		return
	case errors.Is(err, model.ErrBadPassword):
		s.sendError(sess, "Incorrect password")
		return
	case err != nil:
		s.sendError(sess, "Room not found")
		return
	}
	slog.Debug("user joined room", "room", room.ID, "user", sess.Username)

	_ = sess.Send(protocol.NewRoomJoined(room.ID, room.Name, room.Description, room.IsPrivate,
		room.Settings, s.memberInfos(&room, true)))

	s.broadcastToRoom(room.ID, protocol.NewUserJoined(protocol.MemberInfo{
		ID:       sess.UserID,
		Username: sess.Username,
		Status:   string(sess.Status()),
		IsOwner:  room.Owner == sess.UserID,
		IsHost:   room.IsHost(sess.UserID),
		Roles:    sess.Roles.Strings(),
	}), sess.UserID)
}

func (s *Server) handleLeaveRoom(sess *Session, env *protocol.Envelope) {
	if env.RoomID == "" {
		s.sendError(sess, "Room ID is required")
		return
	}
	if _, err := s.rooms.Snapshot(env.RoomID); err != nil {
		s.sendError(sess, "Room not found")
		return
	}

	if !s.leaveRoom(sess.UserID, sess.Username, env.RoomID) {
		s.sendError(sess, "You are not a member of this room")
		return
	}
	_ = sess.Send(protocol.NewLeaveRoomResult(env.RoomID))
}

// leaveRoom runs the shared leave path for explicit leaves, kick-free
// disconnects, and anything else that removes a member: ownership
// transfer announcement, then either the room-removal broadcast or the
// departure broadcast.
func (s *Server) leaveRoom(userID, username, roomID string) bool {
	res, err := s.rooms.Leave(roomID, userID)
	if err != nil {
		return false
	}

	if res.NewOwnerID != "" {
		s.broadcastToRoom(roomID, protocol.NewOwnerChanged(roomID, res.NewOwnerID, s.usernameOf(res.NewOwnerID)))
	}

	if res.Deleted {
		s.metrics.RoomsDeleted.Add(1)
		slog.Info("room removed", "room", roomID)
		s.broadcastToAll(protocol.NewRoomRemoved(roomID))
		return true
	}

	s.broadcastToRoom(roomID, protocol.NewUserLeft(userID, username))
	return true
}

func (s *Server) handleUpdateRoomSettings(sess *Session, env *protocol.Envelope) {
	if env.RoomID == "" || env.Settings == nil {
		s.sendError(sess, "Invalid request format")
		return
	}

	room, err := s.rooms.Snapshot(env.RoomID)
	if err != nil {
		s.sendError(sess, "Room not found")
		return
	}
	if room.Owner != sess.UserID && !room.IsHost(sess.UserID) {
		s.sendError(sess, "You do not have permission to update room settings")
		return
	}

	updated, err := s.rooms.UpdateSettings(env.RoomID, *env.Settings)
	if err != nil {
		s.sendError(sess, err.Error())
		return
	}

	_ = sess.Send(protocol.NewRoomSettingsResult())
	s.broadcastToRoom(updated.ID, protocol.NewRoomUpdated(updated.ID, updated.Name, updated.Description, updated.Settings))
}

func (s *Server) handleGetRoomMembers(sess *Session, env *protocol.Envelope) {
	if env.RoomID == "" {
		s.sendError(sess, "Room ID is required")
		return
	}

	room, err := s.rooms.Snapshot(env.RoomID)
	if err != nil {
		s.sendError(sess, "Room not found")
		return
	}
	if !room.IsMember(sess.UserID) {
		s.sendError(sess, "You are not a member of this room")
		return
	}

	_ = sess.Send(protocol.NewRoomMembers(room.ID, s.memberInfos(&room, false)))
}

func (s *Server) handleStatusUpdate(sess *Session, env *protocol.Envelope) {
	status := model.Status(env.Status)
	if !model.ValidStatus(status) {
		return
	}
	sess.SetStatus(status)

	event := protocol.NewUserStatusUpdate(sess.UserID, env.Status)
	for _, roomID := range s.rooms.RoomsOf(sess.UserID) {
		s.broadcastToRoom(roomID, event)
	}
}

func (s *Server) handleTyping(sess *Session, env *protocol.Envelope) {
	if env.RoomID == "" || env.IsTyping == nil {
		return
	}

	room, err := s.rooms.Snapshot(env.RoomID)
	if err != nil || !room.IsMember(sess.UserID) {
		return
	}

	s.broadcastToRoom(room.ID, protocol.NewUserTyping(sess.UserID, sess.Username, *env.IsTyping), sess.UserID)
}

// memberInfos builds the member listing for a room snapshot. With
// onlineOnly set, members without a live session are skipped (room_joined
// semantics); otherwise they are listed with offline status and their
// stored account details (room_members semantics).
func (s *Server) memberInfos(room *model.Room, onlineOnly bool) []protocol.MemberInfo {
	infos := make([]protocol.MemberInfo, 0, len(room.Members))
	for _, memberID := range room.Members {
		info := protocol.MemberInfo{
			ID:      memberID,
			Status:  string(model.StatusOffline),
			IsOwner: room.Owner == memberID,
			IsHost:  room.IsHost(memberID),
		}

		if sess := s.sessions.Get(memberID); sess != nil {
			info.Username = sess.Username
			info.Status = string(sess.Status())
			info.Roles = sess.Roles.Strings()
		} else {
			if onlineOnly {
				continue
			}
			if u, err := s.store.GetUserByID(memberID); err == nil && u != nil {
				info.Username = u.Username
				info.Roles = u.Roles.Strings()
			} else {
				info.Username = "Unknown"
			}
		}
		infos = append(infos, info)
	}
	return infos
}

// usernameOf resolves a user id to a display name, preferring the live
// session over a store lookup.
func (s *Server) usernameOf(userID string) string {
	if sess := s.sessions.Get(userID); sess != nil {
		return sess.Username
	}
	if u, err := s.store.GetUserByID(userID); err == nil && u != nil {
		return u.Username
	}
	return "Unknown"
}
