package server

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mlaroche/chatnet/pkg/model"
	"github.com/mlaroche/chatnet/pkg/protocol"
	"github.com/mlaroche/chatnet/pkg/store"
)

// RoomManager owns the in-memory room table. Every mutation happens
// under the exclusive lock, so membership changes, moderation, and
// ownership transfer are each one indivisible step to observers.
// Mutating methods return deep-copied snapshots; callers never touch
// live room state.
//
// Rooms are persisted through the store after every mutation. A save
// failure is logged and never rolls back the in-memory change.
type RoomManager struct {
	mu    sync.RWMutex
	rooms map[string]*model.Room
	store store.DataStore
	now   func() time.Time
}

// LeaveResult describes what a leave (or disconnect) did to the room.
type LeaveResult struct {
	Room       model.Room // state after the leave; stale if Deleted
	Deleted    bool       // room emptied and was removed
	NewOwnerID string     // non-empty if ownership transferred
	Promoted   bool       // the new owner was also promoted to host
}

// NewRoomManager creates a room manager backed by the given store.
func NewRoomManager(st store.DataStore) *RoomManager {
	return &RoomManager{
		rooms: make(map[string]*model.Room),
		store: st,
		now:   time.Now,
	}
}

// Load populates the table from the store. Rooms with no members are
// dropped: an empty room never lingers, whatever persistence says.
func (rm *RoomManager) Load() error {
	rooms, err := rm.store.LoadRooms()
	if err != nil {
		return fmt.Errorf("server: load rooms: %w", err)
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	for _, r := range rooms {
		if len(r.Members) == 0 {
			_ = rm.store.DeleteRoom(r.ID)
			continue
		}
		rm.rooms[r.ID] = r
	}
	slog.Info("rooms loaded", "count", len(rm.rooms))
	return nil
}

// persist saves the room, logging failures instead of propagating them.
// Must be called with the lock held.
func (rm *RoomManager) persist(r *model.Room) {
	if err := rm.store.SaveRoom(r); err != nil {
		slog.Error("persist room", "room", r.ID, "err", err)
	}
}

// Create builds a new room owned by the creator, who starts as its only
// member and host.
func (rm *RoomManager) Create(ownerID string, data protocol.RoomData) (model.Room, error) {
	capacity := data.Capacity
	if capacity == 0 {
		capacity = model.RoomDefaultCapacity
	}
	settings := model.DefaultRoomSettings()
	if data.AllowGuests != nil {
		settings.AllowGuests = *data.AllowGuests
	}
	if data.AIEnabled != nil {
		settings.AIEnabled = *data.AIEnabled
	}
	settings.SlowMode = data.SlowMode
	if data.SlowModeDelay > 0 {
		settings.SlowModeDelay = data.SlowModeDelay
	}

	room := &model.Room{
		ID:          "room-" + uuid.NewString(),
		Name:        data.Name,
		Description: data.Description,
		Capacity:    capacity,
		IsPrivate:   data.IsPrivate,
		Password:    data.Password,
		Owner:       ownerID,
		Hosts:       []string{ownerID},
		Members:     []string{ownerID},
		Settings:    settings,
		CreatedAt:   rm.now(),
	}
	if err := room.Validate(); err != nil {
		return model.Room{}, err
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.rooms[room.ID] = room
	rm.persist(room)
	return room.Clone(), nil
}

// Snapshot returns a deep copy of the room.
func (rm *RoomManager) Snapshot(roomID string) (model.Room, error) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	room, ok := rm.rooms[roomID]
	if !ok {
		return model.Room{}, model.ErrRoomNotFound
	}
	return room.Clone(), nil
}

// List returns snapshots of all rooms, ordered by creation time.
func (rm *RoomManager) List() []model.Room {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	out := make([]model.Room, 0, len(rm.rooms))
	for _, r := range rm.rooms {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// RoomsOf returns the ids of all rooms the user is a member of.
func (rm *RoomManager) RoomsOf(userID string) []string {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	var out []string
	for id, r := range rm.rooms {
		if r.IsMember(userID) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Members returns the member ids of a room, or nil if it does not exist.
func (rm *RoomManager) Members(roomID string) []string {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	room, ok := rm.rooms[roomID]
	if !ok {
		return nil
	}
	return append([]string(nil), room.Members...)
}

// Join adds the user to the room. Fails with ErrRoomFull, ErrBanned, or
// ErrBadPassword; those checks apply to rejoins too. A rejoin that
// passes them is a no-op, not an error. added reports whether
// membership actually changed.
func (rm *RoomManager) Join(roomID, userID, password string) (room model.Room, added bool, err error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	r, ok := rm.rooms[roomID]
	if !ok {
		return model.Room{}, false, model.ErrRoomNotFound
	}

	// Failure checks run before the idempotent add, so even a current
	// member rejoining a full room or presenting a wrong password is
	// rejected.
	if len(r.Members) >= r.Capacity {
		return model.Room{}, false, model.ErrRoomFull
	}
	if r.IsBannedUser(userID) {
		return model.Room{}, false, model.ErrBanned
	}
	if r.IsPrivate && r.Password != "" && r.Password != password {
		return model.Room{}, false, model.ErrBadPassword
	}

	added = r.AddMember(userID)
	if added {
		rm.persist(r)
	}
	return r.Clone(), added, nil
}

// Leave removes the user from the room's members and hosts. If the
// departing user owned the room, ownership transfers to the first
// remaining host still in the room, or the first remaining member
// (promoted to host). If no members remain the room is deleted.
func (rm *RoomManager) Leave(roomID, userID string) (LeaveResult, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	r, ok := rm.rooms[roomID]
	if !ok {
		return LeaveResult{}, model.ErrRoomNotFound
	}
	if !r.IsMember(userID) {
		return LeaveResult{}, model.ErrNotMember
	}

	r.RemoveMember(userID)

	var res LeaveResult
	if r.Owner == userID {
		successor, promote := r.NextOwner(userID)
		if successor != "" {
			r.Owner = successor
			if promote {
				r.Hosts = append(r.Hosts, successor)
			}
			res.NewOwnerID = successor
			res.Promoted = promote
		}
	}
	r.RemoveHost(userID)

	if len(r.Members) == 0 {
		delete(rm.rooms, roomID)
		if err := rm.store.DeleteRoom(roomID); err != nil {
			slog.Error("delete room", "room", roomID, "err", err)
		}
		res.Room = r.Clone()
		res.Deleted = true
		return res, nil
	}

	rm.persist(r)
	res.Room = r.Clone()
	return res, nil
}

// UpdateSettings applies a partial settings update.
func (rm *RoomManager) UpdateSettings(roomID string, patch protocol.SettingsPatch) (model.Room, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	r, ok := rm.rooms[roomID]
	if !ok {
		return model.Room{}, model.ErrRoomNotFound
	}

	if patch.Name != "" {
		r.Name = patch.Name
	}
	if patch.Description != nil {
		r.Description = *patch.Description
	}
	if patch.IsPrivate != nil {
		r.IsPrivate = *patch.IsPrivate
	}
	if r.IsPrivate && patch.Password != "" {
		r.Password = patch.Password
	}
	if patch.AllowGuests != nil {
		r.Settings.AllowGuests = *patch.AllowGuests
	}
	if patch.AIEnabled != nil {
		r.Settings.AIEnabled = *patch.AIEnabled
	}
	if patch.SlowMode != nil {
		r.Settings.SlowMode = *patch.SlowMode
	}
	if patch.SlowModeDelay != nil {
		r.Settings.SlowModeDelay = *patch.SlowModeDelay
	}
	if err := r.Validate(); err != nil {
		return model.Room{}, err
	}

	rm.persist(r)
	return r.Clone(), nil
}

// ToggleAI flips the room's AI setting and returns the new state.
func (rm *RoomManager) ToggleAI(roomID string) (bool, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	r, ok := rm.rooms[roomID]
	if !ok {
		return false, model.ErrRoomNotFound
	}
	r.Settings.AIEnabled = !r.Settings.AIEnabled
	rm.persist(r)
	return r.Settings.AIEnabled, nil
}

// Evict removes the target from members and hosts; with ban set, the
// target is also recorded on the room's permanent ban list. The owner
// check runs here under the lock, not only in the caller: the target
// may have been promoted to owner since the caller's snapshot, and
// evicting the owner without a transfer would strand the room.
func (rm *RoomManager) Evict(roomID, targetID string, ban bool) (model.Room, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	r, ok := rm.rooms[roomID]
	if !ok {
		return model.Room{}, model.ErrRoomNotFound
	}
	if !r.IsMember(targetID) {
		return model.Room{}, model.ErrNotMember
	}
	if targetID == r.Owner {
		return model.Room{}, model.ErrPermissionDenied
	}

	if ban && !r.IsBannedUser(targetID) {
		r.BannedUsers = append(r.BannedUsers, targetID)
	}
	r.RemoveMember(targetID)
	r.RemoveHost(targetID)

	rm.persist(r)
	return r.Clone(), nil
}

// Mute records a mute expiry for the target. A second mute overwrites
// the previous expiry rather than stacking. Like Evict, the owner check
// runs under the lock so a target promoted since the caller's snapshot
// is still protected.
func (rm *RoomManager) Mute(roomID, targetID string, until time.Time) (model.Room, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	r, ok := rm.rooms[roomID]
	if !ok {
		return model.Room{}, model.ErrRoomNotFound
	}
	if !r.IsMember(targetID) {
		return model.Room{}, model.ErrNotMember
	}
	if targetID == r.Owner {
		return model.Room{}, model.ErrPermissionDenied
	}

	if r.MutedUsers == nil {
		r.MutedUsers = make(map[string]time.Time)
	}
	r.MutedUsers[targetID] = until

	rm.persist(r)
	return r.Clone(), nil
}

// ClearMute removes the target's mute entry only if it still carries the
// expiry the caller scheduled. A mute entry replaced by a later command
// is left alone, so a stale unmute timer no-ops.
func (rm *RoomManager) ClearMute(roomID, targetID string, scheduled time.Time) bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	r, ok := rm.rooms[roomID]
	if !ok {
		return false
	}
	until, ok := r.MutedUsers[targetID]
	if !ok || !until.Equal(scheduled) {
		return false
	}
	delete(r.MutedUsers, targetID)
	rm.persist(r)
	return true
}

// CreatePoll adds a poll to the room and returns its snapshot.
func (rm *RoomManager) CreatePoll(roomID, question string, options []string, createdBy string) (model.Poll, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	r, ok := rm.rooms[roomID]
	if !ok {
		return model.Poll{}, model.ErrRoomNotFound
	}

	poll, err := model.NewPoll("poll-"+uuid.NewString(), question, options, createdBy, rm.now())
	if err != nil {
		return model.Poll{}, err
	}
	if r.Polls == nil {
		r.Polls = make(map[string]*model.Poll)
	}
	r.Polls[poll.ID] = poll

	rm.persist(r)
	return poll.Clone(), nil
}

// Vote records a vote and returns the updated poll snapshot. Fails with
// ErrAlreadyVoted, ErrInvalidOption, or ErrPollNotFound; a failed vote
// never mutates the tally.
func (rm *RoomManager) Vote(roomID, pollID, userID string, optionIndex int) (model.Poll, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	r, ok := rm.rooms[roomID]
	if !ok {
		return model.Poll{}, model.ErrRoomNotFound
	}
	poll, ok := r.Polls[pollID]
	if !ok {
		return model.Poll{}, model.ErrPollNotFound
	}
	if err := poll.Vote(userID, optionIndex); err != nil {
		return model.Poll{}, err
	}

	rm.persist(r)
	return poll.Clone(), nil
}
