package server

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/mlaroche/chatnet/pkg/model"
	"github.com/mlaroche/chatnet/pkg/store"
)

// RoomYAML represents a room in the bootstrap config and in exports.
// Owner is a username; the account must already exist when the file is
// imported, and becomes the room's sole member.
type RoomYAML struct {
	Name          string `yaml:"name"`
	Description   string `yaml:"description,omitempty"`
	Capacity      int    `yaml:"capacity,omitempty"`
	IsPrivate     bool   `yaml:"is_private,omitempty"`
	Password      string `yaml:"password,omitempty"`
	Owner         string `yaml:"owner"`
	AllowGuests   *bool  `yaml:"allow_guests,omitempty"`
	AIEnabled     *bool  `yaml:"ai_enabled,omitempty"`
	SlowMode      bool   `yaml:"slow_mode,omitempty"`
	SlowModeDelay int    `yaml:"slow_mode_delay,omitempty"`
}

// RoomsConfig is the top-level YAML config for rooms.
type RoomsConfig struct {
	Rooms []RoomYAML `yaml:"rooms"`
}

// UserYAML represents a user in YAML export.
type UserYAML struct {
	ID        string   `yaml:"id"`
	Username  string   `yaml:"username"`
	Roles     []string `yaml:"roles"`
	Banned    bool     `yaml:"banned,omitempty"`
	CreatedAt string   `yaml:"created_at"`
}

// UsersExport is the top-level YAML for user export.
type UsersExport struct {
	Users []UserYAML `yaml:"users"`
}

// LoadRoomsFromYAML reads a rooms YAML file and creates the rooms in the
// store. Called before the room manager loads, so bootstrapped rooms
// appear in the table at startup.
func LoadRoomsFromYAML(path string, st store.DataStore) error {
	data, err := os.ReadFile(path) //nolint:gosec // path from user-provided CLI config
	if err != nil {
		return fmt.Errorf("read rooms config: %w", err)
	}
	return ImportRoomsFromYAML(data, st)
}

// ImportRoomsFromYAML parses YAML data and creates rooms in the store.
// Rooms whose name already exists, or whose owner account is missing,
// are skipped.
func ImportRoomsFromYAML(data []byte, st store.DataStore) error {
	var cfg RoomsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse rooms config: %w", err)
	}

	existing, err := st.LoadRooms()
	if err != nil {
		return fmt.Errorf("load rooms: %w", err)
	}
	names := make(map[string]bool, len(existing))
	for _, r := range existing {
		names[r.Name] = true
	}

	count := 0
	for _, ry := range cfg.Rooms {
		if names[ry.Name] {
			continue
		}
		if err := ensureRoom(st, ry); err != nil {
			slog.Error("failed to create room from config", "name", ry.Name, "err", err)
			continue
		}
		names[ry.Name] = true
		count++
	}

	slog.Info("imported rooms from YAML", "count", count)
	return nil
}

func ensureRoom(st store.DataStore, ry RoomYAML) error {
	owner, err := st.GetUserByUsername(ry.Owner)
	if err != nil {
		return err
	}
	if owner == nil {
		return fmt.Errorf("owner %q: %w", ry.Owner, model.ErrUserNotFound)
	}

	capacity := ry.Capacity
	if capacity == 0 {
		capacity = model.RoomDefaultCapacity
	}
	settings := model.DefaultRoomSettings()
	if ry.AllowGuests != nil {
		settings.AllowGuests = *ry.AllowGuests
	}
	if ry.AIEnabled != nil {
		settings.AIEnabled = *ry.AIEnabled
	}
	settings.SlowMode = ry.SlowMode
	if ry.SlowModeDelay > 0 {
		settings.SlowModeDelay = ry.SlowModeDelay
	}

	room := &model.Room{
		ID:          "room-" + uuid.NewString(),
		Name:        ry.Name,
		Description: ry.Description,
		Capacity:    capacity,
		IsPrivate:   ry.IsPrivate,
		Password:    ry.Password,
		Owner:       owner.ID,
		Hosts:       []string{owner.ID},
		Members:     []string{owner.ID},
		Settings:    settings,
		CreatedAt:   time.Now(),
	}
	if err := room.Validate(); err != nil {
		return err
	}
	if err := st.SaveRoom(room); err != nil {
		return err
	}
	slog.Debug("created room from config", "name", ry.Name, "owner", ry.Owner)
	return nil
}

// ExportRoomsYAML exports all persisted rooms as YAML.
func ExportRoomsYAML(st store.DataStore) ([]byte, error) {
	rooms, err := st.LoadRooms()
	if err != nil {
		return nil, err
	}

	cfg := RoomsConfig{}
	for _, r := range rooms {
		owner := ""
		if u, err := st.GetUserByID(r.Owner); err == nil && u != nil {
			owner = u.Username
		}
		cfg.Rooms = append(cfg.Rooms, RoomYAML{
			Name:          r.Name,
			Description:   r.Description,
			Capacity:      r.Capacity,
			IsPrivate:     r.IsPrivate,
			Password:      r.Password,
			Owner:         owner,
			AllowGuests:   &r.Settings.AllowGuests,
			AIEnabled:     &r.Settings.AIEnabled,
			SlowMode:      r.Settings.SlowMode,
			SlowModeDelay: r.Settings.SlowModeDelay,
		})
	}
	return yaml.Marshal(&cfg)
}

// ExportUsersYAML exports all users as YAML.
func ExportUsersYAML(st store.DataStore) ([]byte, error) {
	users, err := st.ListUsers()
	if err != nil {
		return nil, err
	}

	export := UsersExport{}
	for _, u := range users {
		export.Users = append(export.Users, UserYAML{
			ID:        u.ID,
			Username:  u.Username,
			Roles:     u.Roles.Strings(),
			Banned:    u.Banned,
			CreatedAt: u.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	return yaml.Marshal(&export)
}
