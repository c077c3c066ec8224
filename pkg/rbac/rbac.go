// Package rbac provides permission checks combining global account roles
// with room-scoped privilege (owner, host).
package rbac

import "github.com/mlaroche/chatnet/pkg/model"

// Actor identifies the user performing or receiving a privileged action.
type Actor struct {
	ID       string
	Username string
	Roles    model.RoleSet
}

// Admin reports whether the actor carries server-wide moderation authority.
func (a Actor) Admin() bool {
	return a.Roles.Admin()
}

// CanModerate reports whether the actor may run moderation-tier operations
// (mute, kick, ban, polls, room settings) in the room: global admin/owner,
// or the room's owner, or one of its hosts.
func CanModerate(actor Actor, room *model.Room) bool {
	if actor.Admin() {
		return true
	}
	return room.Owner == actor.ID || room.IsHost(actor.ID)
}

// CanTarget checks the target-side invariants of a moderation action:
// the room owner can never be targeted, and a target holding the admin
// role can only be moderated by another admin. Returns nil when the
// action may proceed.
func CanTarget(actor Actor, room *model.Room, target Actor) error {
	if target.ID == room.Owner {
		return model.ErrPermissionDenied
	}
	if target.Roles.Admin() && !actor.Admin() {
		return model.ErrPermissionDenied
	}
	return nil
}

// RequireModerator returns a user-facing denial message if the actor lacks
// moderation privilege in the room, or empty string if allowed.
func RequireModerator(actor Actor, room *model.Room) string {
	if CanModerate(actor, room) {
		return ""
	}
	return "You do not have permission to use this command"
}
