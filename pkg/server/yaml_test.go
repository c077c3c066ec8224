package server

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/mlaroche/chatnet/pkg/store"
)

func TestImportRoomsFromYAML(t *testing.T) {
	st := store.NewMemory()
	owner, err := st.CreateUser("alice", "", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	data := []byte(`
rooms:
  - name: general
    description: Main room
    owner: alice
  - name: vault
    is_private: true
    password: sesame
    capacity: 5
    slow_mode: true
    slow_mode_delay: 10
    owner: alice
  - name: orphaned
    owner: nobody
`)
	if err := ImportRoomsFromYAML(data, st); err != nil {
		t.Fatalf("ImportRoomsFromYAML: %v", err)
	}

	rooms, err := st.LoadRooms()
	if err != nil {
		t.Fatalf("LoadRooms: %v", err)
	}
	// The room with a missing owner account is skipped.
	if len(rooms) != 2 {
		t.Fatalf("got %d rooms, want 2", len(rooms))
	}

	byName := map[string]int{}
	for i, r := range rooms {
		byName[r.Name] = i
	}
	general := rooms[byName["general"]]
	if general.Owner != owner.ID || !general.IsHost(owner.ID) || !general.IsMember(owner.ID) {
		t.Fatalf("owner not seeded as sole member+host: %+v", general)
	}
	vault := rooms[byName["vault"]]
	if !vault.IsPrivate || vault.Password != "sesame" || vault.Capacity != 5 {
		t.Fatalf("vault = %+v", vault)
	}
	if !vault.Settings.SlowMode || vault.Settings.SlowModeDelay != 10 {
		t.Fatalf("vault settings = %+v", vault.Settings)
	}

	// Re-importing the same file is a no-op: names already exist.
	if err := ImportRoomsFromYAML(data, st); err != nil {
		t.Fatalf("re-import: %v", err)
	}
	if rooms, _ = st.LoadRooms(); len(rooms) != 2 {
		t.Fatalf("re-import duplicated rooms: %d", len(rooms))
	}
}

func TestExportRoomsYAML(t *testing.T) {
	st := store.NewMemory()
	if _, err := st.CreateUser("alice", "", "hash"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	seed := []byte("rooms:\n  - name: general\n    owner: alice\n")
	if err := ImportRoomsFromYAML(seed, st); err != nil {
		t.Fatalf("import: %v", err)
	}

	out, err := ExportRoomsYAML(st)
	if err != nil {
		t.Fatalf("ExportRoomsYAML: %v", err)
	}
	var cfg RoomsConfig
	if err := yaml.Unmarshal(out, &cfg); err != nil {
		t.Fatalf("parse export: %v", err)
	}
	if len(cfg.Rooms) != 1 || cfg.Rooms[0].Name != "general" || cfg.Rooms[0].Owner != "alice" {
		t.Fatalf("export = %+v", cfg.Rooms)
	}
}

func TestExportUsersYAML(t *testing.T) {
	st := store.NewMemory()
	u, err := st.CreateUser("alice", "a@example.com", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	u.Banned = true
	if err := st.SaveUser(u); err != nil {
		t.Fatalf("save user: %v", err)
	}

	out, err := ExportUsersYAML(st)
	if err != nil {
		t.Fatalf("ExportUsersYAML: %v", err)
	}
	var export UsersExport
	if err := yaml.Unmarshal(out, &export); err != nil {
		t.Fatalf("parse export: %v", err)
	}
	if len(export.Users) != 1 {
		t.Fatalf("got %d users, want 1", len(export.Users))
	}
	got := export.Users[0]
	if got.Username != "alice" || got.ID != u.ID || !got.Banned {
		t.Fatalf("user = %+v", got)
	}
	// Password hashes never leave through exports.
	if strings.Contains(string(out), "hash") {
		t.Fatal("export leaked a password hash")
	}
}
