// Package protocol defines the JSON event envelopes exchanged over the
// websocket connection. Inbound events share one envelope struct keyed by
// Type; outbound events are individual structs whose Type field is fixed
// by their constructor.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Inbound event types.
const (
	TypeMessage            = "message"
	TypeWhisper            = "whisper"
	TypeCreateRoom         = "create_room"
	TypeJoinRoom           = "join_room"
	TypeLeaveRoom          = "leave_room"
	TypeUpdateRoomSettings = "update_room_settings"
	TypeGetRoomMembers     = "get_room_members"
	TypeStatusUpdate       = "status_update"
	TypeTyping             = "typing"
	TypeVotePoll           = "vote_poll"
)

// RoomData carries the creator-supplied fields of a create_room request.
type RoomData struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	Capacity      int    `json:"capacity"`
	IsPrivate     bool   `json:"isPrivate"`
	Password      string `json:"password"`
	AllowGuests   *bool  `json:"allowGuests"`
	AIEnabled     *bool  `json:"aiEnabled"`
	SlowMode      bool   `json:"slowMode"`
	SlowModeDelay int    `json:"slowModeDelay"`
}

// SettingsPatch carries the optional fields of update_room_settings.
// Nil pointers mean "leave unchanged".
type SettingsPatch struct {
	Name          string  `json:"name"`
	Description   *string `json:"description"`
	IsPrivate     *bool   `json:"isPrivate"`
	Password      string  `json:"password"`
	AllowGuests   *bool   `json:"allowGuests"`
	AIEnabled     *bool   `json:"aiEnabled"`
	SlowMode      *bool   `json:"slowMode"`
	SlowModeDelay *int    `json:"slowModeDelay"`
}

// Envelope is the inbound wire format. Only the fields relevant to Type
// are populated by clients.
type Envelope struct {
	Type        string         `json:"type"`
	RoomID      string         `json:"roomId,omitempty"`
	Content     string         `json:"content,omitempty"`
	TargetID    string         `json:"targetId,omitempty"`
	Password    string         `json:"password,omitempty"`
	RoomData    *RoomData      `json:"roomData,omitempty"`
	Settings    *SettingsPatch `json:"settings,omitempty"`
	Status      string         `json:"status,omitempty"`
	IsTyping    *bool          `json:"isTyping,omitempty"`
	PollID      string         `json:"pollId,omitempty"`
	OptionIndex *int           `json:"optionIndex,omitempty"`
}

// Decode parses an inbound wire message.
func Decode(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("protocol: decode: %w", err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("protocol: missing event type")
	}
	return &env, nil
}
