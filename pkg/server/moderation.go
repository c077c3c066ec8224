package server

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mlaroche/chatnet/pkg/model"
	"github.com/mlaroche/chatnet/pkg/protocol"
	"github.com/mlaroche/chatnet/pkg/rbac"
)

// resolveTarget looks up the target of a moderation command by username.
func (s *Server) resolveTarget(username string) (*model.User, error) {
	user, err := s.store.GetUserByUsername(username)
	if err != nil {
		return nil, fmt.Errorf("server: resolve target: %w", err)
	}
	if user == nil {
		return nil, model.ErrUserNotFound
	}
	return user, nil
}

// checkModeration runs the shared target-side checks for kick, ban, and
// mute. Returns a user-facing denial message, or "" if the action may
// proceed. action is the verb used in the message ("kick", "ban", "mute").
func checkModeration(actor rbac.Actor, room *model.Room, target *model.User, action string) string {
	if !room.IsMember(target.ID) {
		return fmt.Sprintf("User %s is not in this room", target.Username)
	}
	err := rbac.CanTarget(actor, room, rbac.Actor{
		ID:       target.ID,
		Username: target.Username,
		Roles:    target.Roles,
	})
	if err != nil {
		if target.ID == room.Owner {
			return fmt.Sprintf("You cannot %s the room owner", action)
		}
		return fmt.Sprintf("You cannot %s an admin", action)
	}
	return ""
}

// denialFor translates a room-manager rejection of a moderation mutation
// into the user-facing message. ErrPermissionDenied means the target
// became the owner after the caller's snapshot.
func denialFor(err error, targetName, action string) string {
	if errors.Is(err, model.ErrPermissionDenied) {
		return fmt.Sprintf("You cannot %s the room owner", action)
	}
	return fmt.Sprintf("User %s is not in this room", targetName)
}

// kickUser removes the target from the room, notifies them directly if
// online, and announces the kick to the room.
func (s *Server) kickUser(actor rbac.Actor, room model.Room, targetName, reason string) commandResult {
	target, err := s.resolveTarget(targetName)
	if err != nil {
		return systemResult(fmt.Sprintf("User %s not found", targetName))
	}
	if msg := checkModeration(actor, &room, target, "kick"); msg != "" {
		return systemResult(msg)
	}

	if _, err := s.rooms.Evict(room.ID, target.ID, false); err != nil {
		return systemResult(denialFor(err, targetName, "kick"))
	}
	s.metrics.KickCount.Add(1)
	slog.Info("user kicked", "room", room.ID, "target", target.Username, "by", actor.Username)

	s.sendTo(target.ID, protocol.NewKicked(room.ID, room.Name, reason))
	s.broadcastToRoom(room.ID, protocol.NewUserKicked(target.Username, reason, actor.Username))

	return aiResult(fmt.Sprintf("%s has been kicked from the room. Reason: %s", target.Username, reason))
}

// banUser adds the target to the room's permanent ban list, removes them
// from the room, and announces the ban.
func (s *Server) banUser(actor rbac.Actor, room model.Room, targetName, reason string) commandResult {
	target, err := s.resolveTarget(targetName)
	if err != nil {
		return systemResult(fmt.Sprintf("User %s not found", targetName))
	}
	if msg := checkModeration(actor, &room, target, "ban"); msg != "" {
		return systemResult(msg)
	}

	if _, err := s.rooms.Evict(room.ID, target.ID, true); err != nil {
		return systemResult(denialFor(err, targetName, "ban"))
	}
	s.metrics.BanCount.Add(1)
	slog.Info("user banned", "room", room.ID, "target", target.Username, "by", actor.Username)

	s.sendTo(target.ID, protocol.NewBanned(room.ID, room.Name, reason))
	s.broadcastToRoom(room.ID, protocol.NewUserBanned(target.Username, reason, actor.Username))

	return aiResult(fmt.Sprintf("%s has been banned from the room. Reason: %s", target.Username, reason))
}

// muteUser records a timed mute for the target and schedules the unmute.
// A repeat mute overwrites the expiry rather than stacking; the earlier
// timer then fires against a changed entry and no-ops.
func (s *Server) muteUser(actor rbac.Actor, room model.Room, targetName string, minutes int, reason string) commandResult {
	target, err := s.resolveTarget(targetName)
	if err != nil {
		return systemResult(fmt.Sprintf("User %s not found", targetName))
	}
	if msg := checkModeration(actor, &room, target, "mute"); msg != "" {
		return systemResult(msg)
	}

	duration := time.Duration(minutes) * time.Minute
	until := time.Now().Add(duration)
	if _, err := s.rooms.Mute(room.ID, target.ID, until); err != nil {
		return systemResult(denialFor(err, targetName, "mute"))
	}
	s.metrics.MuteCount.Add(1)
	slog.Info("user muted", "room", room.ID, "target", target.Username, "minutes", minutes, "by", actor.Username)

	s.sendTo(target.ID, protocol.NewMuted(room.ID, room.Name, minutes, reason, until))
	s.broadcastToRoom(room.ID, protocol.NewUserMuted(target.Username, minutes, reason, actor.Username))

	s.scheduleUnmute(room.ID, target.ID, target.Username, until, duration)

	return aiResult(fmt.Sprintf("%s has been muted for %d minutes. Reason: %s", target.Username, minutes, reason))
}

// scheduleUnmute arranges for the mute to be lifted when it expires. The
// timer re-checks current state before acting: it only clears the entry
// it scheduled, so it no-ops if the mute was overwritten or the room is
// gone, and the unmute broadcast fires exactly once.
func (s *Server) scheduleUnmute(roomID, targetID, targetName string, until time.Time, after time.Duration) {
	time.AfterFunc(after, func() {
		if !s.rooms.ClearMute(roomID, targetID, until) {
			return
		}
		roomName := ""
		if room, err := s.rooms.Snapshot(roomID); err == nil {
			roomName = room.Name
		}
		s.sendTo(targetID, protocol.NewUnmuted(roomID, roomName))
		s.broadcastToRoom(roomID, protocol.NewUserUnmuted(targetName))
	})
}
