package model

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	RoomDefaultCapacity      = 50
	RoomDefaultSlowModeDelay = 5 // seconds

	MaxRoomNameLength = 64
	MaxRoomDescLength = 256
	MaxRoomCapacity   = 500
)

var ErrRoomNameEmpty = errors.New("room name must not be empty")
var ErrRoomNameTooLong = errors.New("room name too long")
var ErrRoomDescTooLong = errors.New("room description too long")
var ErrRoomCapacity = errors.New("room capacity out of range")

// RoomSettings holds per-room behavior toggles.
type RoomSettings struct {
	AllowGuests   bool `json:"allowGuests"`
	AIEnabled     bool `json:"aiEnabled"`
	SlowMode      bool `json:"slowMode"`
	SlowModeDelay int  `json:"slowModeDelay"` // seconds between chat sends per user
}

// DefaultRoomSettings returns the settings applied to a new room when the
// creator does not override them.
func DefaultRoomSettings() RoomSettings {
	return RoomSettings{
		AllowGuests:   true,
		AIEnabled:     true,
		SlowMode:      false,
		SlowModeDelay: RoomDefaultSlowModeDelay,
	}
}

// Room is a named group-chat namespace. Hosts and Members are ordered
// slices, not maps: ownership transfer picks the first remaining host (or
// member) in insertion order, and that order must be deterministic.
//
// Invariants, maintained by the room manager:
//   - Owner is always a current member while the room exists.
//   - Hosts is a subset of Members.
//   - A room whose Members becomes empty is deleted immediately.
type Room struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Capacity    int                  `json:"capacity"`
	IsPrivate   bool                 `json:"isPrivate"`
	Password    string               `json:"password,omitempty"` // plaintext room key, compared verbatim
	Owner       string               `json:"owner"`
	Hosts       []string             `json:"hosts"`
	Members     []string             `json:"members"`
	BannedUsers []string             `json:"bannedUsers,omitempty"`
	MutedUsers  map[string]time.Time `json:"mutedUsers,omitempty"` // user id -> mute expiry
	Settings    RoomSettings         `json:"settings"`
	Polls       map[string]*Poll     `json:"polls,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}

// Validate checks name, description, and capacity bounds.
func (r *Room) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrRoomNameEmpty
	}
	if utf8.RuneCountInString(r.Name) > MaxRoomNameLength {
		return ErrRoomNameTooLong
	}
	if utf8.RuneCountInString(r.Description) > MaxRoomDescLength {
		return ErrRoomDescTooLong
	}
	if r.Capacity < 1 || r.Capacity > MaxRoomCapacity {
		return ErrRoomCapacity
	}
	return nil
}

// IsMember reports whether the user id is a current member.
func (r *Room) IsMember(userID string) bool {
	return contains(r.Members, userID)
}

// IsHost reports whether the user id holds host privilege in this room.
func (r *Room) IsHost(userID string) bool {
	return contains(r.Hosts, userID)
}

// IsBannedUser reports whether the user id is on the room's ban list.
func (r *Room) IsBannedUser(userID string) bool {
	return contains(r.BannedUsers, userID)
}

// AddMember appends the user id to Members if not already present.
// Returns true if the membership changed.
func (r *Room) AddMember(userID string) bool {
	if r.IsMember(userID) {
		return false
	}
	r.Members = append(r.Members, userID)
	return true
}

// RemoveMember removes the user id from Members only. Host and owner
// bookkeeping is the caller's responsibility (the removal order matters
// for ownership transfer).
func (r *Room) RemoveMember(userID string) {
	r.Members = remove(r.Members, userID)
}

// RemoveHost removes the user id from Hosts.
func (r *Room) RemoveHost(userID string) {
	r.Hosts = remove(r.Hosts, userID)
}

// NextOwner picks the successor when the current owner departs: the first
// host (in order) other than the departing user who is still a member, or
// failing that the first remaining member, who must then also be promoted
// to host. promote reports whether that host promotion is required.
// Returns "" when no members remain.
func (r *Room) NextOwner(departing string) (successor string, promote bool) {
	for _, id := range r.Hosts {
		if id != departing && r.IsMember(id) {
			return id, false
		}
	}
	if len(r.Members) > 0 {
		return r.Members[0], true
	}
	return "", false
}

// MuteRemaining returns the remaining mute duration for the user at the
// given instant, or zero if the user is not muted (expired entries count
// as not muted).
func (r *Room) MuteRemaining(userID string, now time.Time) time.Duration {
	until, ok := r.MutedUsers[userID]
	if !ok || !until.After(now) {
		return 0
	}
	return until.Sub(now)
}

// Clone returns a deep copy safe to read outside the room table lock.
func (r *Room) Clone() Room {
	out := *r
	out.Hosts = append([]string(nil), r.Hosts...)
	out.Members = append([]string(nil), r.Members...)
	out.BannedUsers = append([]string(nil), r.BannedUsers...)
	if r.MutedUsers != nil {
		out.MutedUsers = make(map[string]time.Time, len(r.MutedUsers))
		for id, until := range r.MutedUsers {
			out.MutedUsers[id] = until
		}
	}
	if r.Polls != nil {
		out.Polls = make(map[string]*Poll, len(r.Polls))
		for id, p := range r.Polls {
			cp := p.Clone()
			out.Polls[id] = &cp
		}
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, have := range ids {
		if have == id {
			return true
		}
	}
	return false
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, have := range ids {
		if have != id {
			out = append(out, have)
		}
	}
	return out
}
