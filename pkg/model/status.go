package model

// Status is a session presence status.
type Status string

const (
	StatusOnline    Status = "online"
	StatusAway      Status = "away"
	StatusBusy      Status = "busy"
	StatusInvisible Status = "invisible"
	StatusOffline   Status = "offline" // reported for members without a live session
)

// ValidStatus reports whether s is a status a client may set on itself.
// "offline" is derived, never set directly.
func ValidStatus(s Status) bool {
	switch s {
	case StatusOnline, StatusAway, StatusBusy, StatusInvisible:
		return true
	}
	return false
}
