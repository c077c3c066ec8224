package protocol

import "time"

// Outbound event types.
const (
	TypeConnected            = "connected"
	TypeError                = "error"
	TypeWhisperSent          = "whisper_sent"
	TypeRoomCreated          = "room_created"
	TypeRoomAdded            = "room_added"
	TypeRoomRemoved          = "room_removed"
	TypeRoomJoined           = "room_joined"
	TypeRoomUpdated          = "room_updated"
	TypeLeaveRoomResult      = "leave_room_result"
	TypeRoomSettingsResult   = "room_settings_update_result"
	TypeUserJoined           = "user_joined"
	TypeUserLeft             = "user_left"
	TypeOwnerChanged         = "owner_changed"
	TypeKicked               = "kicked"
	TypeUserKicked           = "user_kicked"
	TypeBanned               = "banned"
	TypeUserBanned           = "user_banned"
	TypeMuted                = "muted"
	TypeUserMuted            = "user_muted"
	TypeUnmuted              = "unmuted"
	TypeUserUnmuted          = "user_unmuted"
	TypeRoomMembers          = "room_members"
	TypePollCreated          = "poll_created"
	TypePollUpdated          = "poll_updated"
	TypeVoteRecorded         = "vote_recorded"
	TypeCommandResponse      = "command_response"
	TypeUserStatusUpdate     = "user_status_update"
	TypeUserTyping           = "user_typing"
)

// AISenderID identifies system-authored messages on the wire.
const AISenderID = "ai-assistant"

// UserRef is the short user reference carried in events.
type UserRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsAI     bool   `json:"isAI,omitempty"`
}

// MemberInfo describes one room member in room_joined / room_members.
type MemberInfo struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Status   string   `json:"status"`
	IsOwner  bool     `json:"isOwner"`
	IsHost   bool     `json:"isHost"`
	Roles    []string `json:"roles,omitempty"`
}

// RoomSummary is the public listing form of a room.
type RoomSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MemberCount int    `json:"memberCount"`
	IsPrivate   bool   `json:"isPrivate"`
	Owner       string `json:"owner,omitempty"` // owner username, listing only
}

// PollInfo is the creation announcement: question and options, no tally.
type PollInfo struct {
	ID        string   `json:"id"`
	Question  string   `json:"question"`
	Options   []string `json:"options"`
	CreatedBy string   `json:"createdBy"`
}

type Connected struct {
	Type string  `json:"type"`
	User UserRef `json:"user"`
}

func NewConnected(id, username string) Connected {
	return Connected{Type: TypeConnected, User: UserRef{ID: id, Username: username}}
}

type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewError(message string) Error {
	return Error{Type: TypeError, Message: message}
}

type ChatMessage struct {
	Type      string  `json:"type"`
	Sender    UserRef `json:"sender"`
	Message   string  `json:"message"`
	Timestamp int64   `json:"timestamp"` // unix milliseconds
}

func NewChatMessage(sender UserRef, text string, at time.Time) ChatMessage {
	return ChatMessage{Type: TypeMessage, Sender: sender, Message: text, Timestamp: at.UnixMilli()}
}

// NewAIMessage builds a system-authored room message.
func NewAIMessage(senderName, text string, at time.Time) ChatMessage {
	return ChatMessage{
		Type:      TypeMessage,
		Sender:    UserRef{ID: AISenderID, Username: senderName, IsAI: true},
		Message:   text,
		Timestamp: at.UnixMilli(),
	}
}

type Whisper struct {
	Type    string  `json:"type"`
	From    UserRef `json:"from"`
	Message string  `json:"message"`
}

func NewWhisper(from UserRef, text string) Whisper {
	return Whisper{Type: TypeWhisper, From: from, Message: text}
}

type WhisperSent struct {
	Type    string  `json:"type"`
	To      UserRef `json:"to"`
	Message string  `json:"message"`
}

func NewWhisperSent(to UserRef, text string) WhisperSent {
	return WhisperSent{Type: TypeWhisperSent, To: to, Message: text}
}

type RoomCreated struct {
	Type string      `json:"type"`
	Room RoomSummary `json:"room"`
}

func NewRoomCreated(room RoomSummary) RoomCreated {
	return RoomCreated{Type: TypeRoomCreated, Room: room}
}

type RoomAdded struct {
	Type string      `json:"type"`
	Room RoomSummary `json:"room"`
}

func NewRoomAdded(room RoomSummary) RoomAdded {
	return RoomAdded{Type: TypeRoomAdded, Room: room}
}

type RoomRemoved struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
}

func NewRoomRemoved(roomID string) RoomRemoved {
	return RoomRemoved{Type: TypeRoomRemoved, RoomID: roomID}
}

type RoomJoined struct {
	Type        string       `json:"type"`
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	IsPrivate   bool         `json:"isPrivate"`
	Settings    any          `json:"settings"`
	Members     []MemberInfo `json:"members"`
}

func NewRoomJoined(id, name, description string, isPrivate bool, settings any, members []MemberInfo) RoomJoined {
	return RoomJoined{
		Type: TypeRoomJoined, ID: id, Name: name, Description: description,
		IsPrivate: isPrivate, Settings: settings, Members: members,
	}
}

type RoomUpdated struct {
	Type        string `json:"type"`
	RoomID      string `json:"roomId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Settings    any    `json:"settings"`
}

func NewRoomUpdated(roomID, name, description string, settings any) RoomUpdated {
	return RoomUpdated{Type: TypeRoomUpdated, RoomID: roomID, Name: name, Description: description, Settings: settings}
}

type LeaveRoomResult struct {
	Type    string `json:"type"`
	RoomID  string `json:"roomId"`
	Success bool   `json:"success"`
}

func NewLeaveRoomResult(roomID string) LeaveRoomResult {
	return LeaveRoomResult{Type: TypeLeaveRoomResult, RoomID: roomID, Success: true}
}

type RoomSettingsResult struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func NewRoomSettingsResult() RoomSettingsResult {
	return RoomSettingsResult{Type: TypeRoomSettingsResult, Success: true, Message: "Room settings updated successfully"}
}

type UserJoined struct {
	Type string     `json:"type"`
	User MemberInfo `json:"user"`
}

func NewUserJoined(user MemberInfo) UserJoined {
	return UserJoined{Type: TypeUserJoined, User: user}
}

type UserLeft struct {
	Type     string `json:"type"`
	UserID   string `json:"userId"`
	Username string `json:"username,omitempty"`
}

func NewUserLeft(userID, username string) UserLeft {
	return UserLeft{Type: TypeUserLeft, UserID: userID, Username: username}
}

type OwnerChanged struct {
	Type         string `json:"type"`
	RoomID       string `json:"roomId"`
	NewOwnerID   string `json:"newOwnerId"`
	NewOwnerName string `json:"newOwnerName"`
}

func NewOwnerChanged(roomID, ownerID, ownerName string) OwnerChanged {
	return OwnerChanged{Type: TypeOwnerChanged, RoomID: roomID, NewOwnerID: ownerID, NewOwnerName: ownerName}
}

// Removal notices sent directly to the moderated user.
type Removal struct {
	Type     string `json:"type"`
	RoomID   string `json:"roomId"`
	RoomName string `json:"roomName"`
	Reason   string `json:"reason,omitempty"`
}

func NewKicked(roomID, roomName, reason string) Removal {
	return Removal{Type: TypeKicked, RoomID: roomID, RoomName: roomName, Reason: reason}
}

func NewBanned(roomID, roomName, reason string) Removal {
	return Removal{Type: TypeBanned, RoomID: roomID, RoomName: roomName, Reason: reason}
}

// ModerationNotice is the room-wide announcement of a kick or ban.
type ModerationNotice struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	Reason   string `json:"reason"`
	By       string `json:"by"`
}

func NewUserKicked(username, reason, by string) ModerationNotice {
	return ModerationNotice{Type: TypeUserKicked, Username: username, Reason: reason, By: by}
}

func NewUserBanned(username, reason, by string) ModerationNotice {
	return ModerationNotice{Type: TypeUserBanned, Username: username, Reason: reason, By: by}
}

type Muted struct {
	Type            string `json:"type"`
	RoomID          string `json:"roomId"`
	RoomName        string `json:"roomName"`
	DurationMinutes int    `json:"duration"`
	Reason          string `json:"reason"`
	EndTime         int64  `json:"endTime"` // unix milliseconds
}

func NewMuted(roomID, roomName string, minutes int, reason string, until time.Time) Muted {
	return Muted{Type: TypeMuted, RoomID: roomID, RoomName: roomName, DurationMinutes: minutes, Reason: reason, EndTime: until.UnixMilli()}
}

type UserMuted struct {
	Type            string `json:"type"`
	Username        string `json:"username"`
	DurationMinutes int    `json:"duration"`
	Reason          string `json:"reason"`
	By              string `json:"by"`
}

func NewUserMuted(username string, minutes int, reason, by string) UserMuted {
	return UserMuted{Type: TypeUserMuted, Username: username, DurationMinutes: minutes, Reason: reason, By: by}
}

type Unmuted struct {
	Type     string `json:"type"`
	RoomID   string `json:"roomId"`
	RoomName string `json:"roomName"`
}

func NewUnmuted(roomID, roomName string) Unmuted {
	return Unmuted{Type: TypeUnmuted, RoomID: roomID, RoomName: roomName}
}

type UserUnmuted struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

func NewUserUnmuted(username string) UserUnmuted {
	return UserUnmuted{Type: TypeUserUnmuted, Username: username}
}

type RoomMembers struct {
	Type    string       `json:"type"`
	RoomID  string       `json:"roomId"`
	Members []MemberInfo `json:"members"`
}

func NewRoomMembers(roomID string, members []MemberInfo) RoomMembers {
	return RoomMembers{Type: TypeRoomMembers, RoomID: roomID, Members: members}
}

type PollCreated struct {
	Type string   `json:"type"`
	Poll PollInfo `json:"poll"`
}

func NewPollCreated(poll PollInfo) PollCreated {
	return PollCreated{Type: TypePollCreated, Poll: poll}
}

type PollUpdated struct {
	Type   string `json:"type"`
	PollID string `json:"pollId"`
	Votes  []int  `json:"votes"`
}

func NewPollUpdated(pollID string, votes []int) PollUpdated {
	return PollUpdated{Type: TypePollUpdated, PollID: pollID, Votes: votes}
}

type VoteRecorded struct {
	Type        string `json:"type"`
	PollID      string `json:"pollId"`
	OptionIndex int    `json:"optionIndex"`
}

func NewVoteRecorded(pollID string, optionIndex int) VoteRecorded {
	return VoteRecorded{Type: TypeVoteRecorded, PollID: pollID, OptionIndex: optionIndex}
}

type CommandResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Sender  string `json:"sender"`
}

func NewCommandResponse(message, sender string) CommandResponse {
	return CommandResponse{Type: TypeCommandResponse, Message: message, Sender: sender}
}

type UserStatusUpdate struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
	Status string `json:"status"`
}

func NewUserStatusUpdate(userID, status string) UserStatusUpdate {
	return UserStatusUpdate{Type: TypeUserStatusUpdate, UserID: userID, Status: status}
}

type UserTyping struct {
	Type     string `json:"type"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

func NewUserTyping(userID, username string, isTyping bool) UserTyping {
	return UserTyping{Type: TypeUserTyping, UserID: userID, Username: username, IsTyping: isTyping}
}
