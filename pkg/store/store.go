// Package store provides SQLite-backed persistence for users and rooms.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mlaroche/chatnet/pkg/model"
)

// Store provides database access for all chatnet entities.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database and runs migrations.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}

	ctx := context.Background()

	// Enable WAL mode for better concurrent read performance
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: set WAL: %w", err)
	}
	// Set busy timeout to avoid "database is locked" under concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: set busy_timeout: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE COLLATE NOCASE CHECK(length(username) > 0 AND length(username) <= 32),
		email         TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL DEFAULT '',
		roles         TEXT NOT NULL DEFAULT '["user"]',
		blocked       TEXT NOT NULL DEFAULT '[]',
		banned        INTEGER NOT NULL DEFAULT 0,
		created_at    TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS rooms (
		id         TEXT PRIMARY KEY,
		data       TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// CreateUser creates a new account with the default user role.
func (s *Store) CreateUser(username, email, passwordHash string) (*model.User, error) {
	if err := model.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("store: create user: %w", err)
	}

	u := &model.User{
		ID:           "user-" + uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Roles:        model.RoleSet{model.RoleUser},
		CreatedAt:    time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO users (id, username, email, password_hash, roles, blocked, banned, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.PasswordHash,
		mustJSON(u.Roles.Strings()), mustJSON([]string{}), 0,
		u.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, fmt.Errorf("store: username %q already taken", username)
		}
		return nil, fmt.Errorf("store: create user: %w", err)
	}
	return u, nil
}

// GetUserByID retrieves a user by id. Returns (nil, nil) if not found.
func (s *Store) GetUserByID(id string) (*model.User, error) {
	return s.getUser(`SELECT id, username, email, password_hash, roles, blocked, banned, created_at
		FROM users WHERE id = ?`, id)
}

// GetUserByUsername retrieves a user by username. Returns (nil, nil) if not found.
func (s *Store) GetUserByUsername(username string) (*model.User, error) {
	return s.getUser(`SELECT id, username, email, password_hash, roles, blocked, banned, created_at
		FROM users WHERE username = ? COLLATE NOCASE`, username)
}

func (s *Store) getUser(query string, arg any) (*model.User, error) {
	row := s.db.QueryRow(query, arg)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get user: %w", err)
	}
	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	var roles, blocked, createdAt string
	var banned int
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &roles, &blocked, &banned, &createdAt); err != nil {
		return nil, err
	}
	var roleNames []string
	if err := json.Unmarshal([]byte(roles), &roleNames); err != nil {
		return nil, fmt.Errorf("decode roles: %w", err)
	}
	if err := json.Unmarshal([]byte(blocked), &u.BlockedUsers); err != nil {
		return nil, fmt.Errorf("decode blocked users: %w", err)
	}
	u.Roles = model.ParseRoleSet(roleNames)
	u.Banned = banned != 0
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		u.CreatedAt = t
	}
	return &u, nil
}

// SaveUser persists mutable account state.
func (s *Store) SaveUser(u *model.User) error {
	banned := 0
	if u.Banned {
		banned = 1
	}
	res, err := s.db.Exec(
		`UPDATE users SET email = ?, password_hash = ?, roles = ?, blocked = ?, banned = ? WHERE id = ?`,
		u.Email, u.PasswordHash, mustJSON(u.Roles.Strings()), mustJSON(u.BlockedUsers), banned, u.ID,
	)
	if err != nil {
		return fmt.Errorf("store: save user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: save user: %w", model.ErrUserNotFound)
	}
	return nil
}

// ListUsers returns all users ordered by creation time.
func (s *Store) ListUsers() ([]model.User, error) {
	rows, err := s.db.Query(`SELECT id, username, email, password_hash, roles, blocked, banned, created_at
		FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("store: list users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list users: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// IsBanned reports whether the user carries a server-level ban. Unknown
// users are not banned.
func (s *Store) IsBanned(id string) (bool, error) {
	var banned int
	err := s.db.QueryRow(`SELECT banned FROM users WHERE id = ?`, id).Scan(&banned)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: is banned: %w", err)
	}
	return banned != 0, nil
}

// LoadRooms returns all persisted rooms.
//
// Rooms are stored as JSON documents: the room graph (member/host order,
// mute map, polls) round-trips as one snapshot, matching the
// save-everything-after-every-mutation contract.
func (s *Store) LoadRooms() ([]*model.Room, error) {
	rows, err := s.db.Query(`SELECT data FROM rooms ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("store: load rooms: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rooms []*model.Room
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("store: load rooms: %w", err)
		}
		var r model.Room
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("store: decode room: %w", err)
		}
		rooms = append(rooms, &r)
	}
	return rooms, rows.Err()
}

// SaveRoom upserts a room snapshot.
func (s *Store) SaveRoom(r *model.Room) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("store: encode room: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO rooms (id, data, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data`,
		r.ID, string(data), r.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("store: save room: %w", err)
	}
	return nil
}

// DeleteRoom removes a room by id.
func (s *Store) DeleteRoom(id string) error {
	if _, err := s.db.Exec(`DELETE FROM rooms WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: delete room: %w", err)
	}
	return nil
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic("store: marshal: " + err.Error())
	}
	return string(data)
}
