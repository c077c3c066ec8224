package model

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the room/poll/session runtime. Handlers translate
// these into error events for the originating client; none of them abort
// the connection.
var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrPollNotFound     = errors.New("poll not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrRoomFull         = errors.New("room is full")
	ErrBanned           = errors.New("you are banned from this room")
	ErrBadPassword      = errors.New("incorrect password")
	ErrNotMember        = errors.New("you are not a member of this room")
	ErrAlreadyVoted     = errors.New("you have already voted in this poll")
	ErrInvalidOption    = errors.New("invalid option selected")
	ErrPermissionDenied = errors.New("permission denied")
	ErrTargetOffline    = errors.New("user is not online")
	ErrBlocked          = errors.New("cannot send message to this user")
)

// MutedError rejects a chat send while a room mute is active.
type MutedError struct {
	Remaining time.Duration
}

func (e *MutedError) Error() string {
	minutes := int(e.Remaining.Minutes()) + 1
	return fmt.Sprintf("you are muted for %d more minute(s)", minutes)
}

// SlowModeError rejects a chat send before the slow-mode cooldown elapses.
type SlowModeError struct {
	Remaining time.Duration
}

func (e *SlowModeError) Error() string {
	seconds := int(e.Remaining.Seconds()) + 1
	return fmt.Sprintf("slow mode is enabled, wait %d second(s) before sending another message", seconds)
}
