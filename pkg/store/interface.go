package store

import "github.com/mlaroche/chatnet/pkg/model"

// DataStore is the persistence collaborator the room runtime calls at
// defined points: load at startup, save after every mutating operation.
// Save failures are logged by callers and never roll back in-memory
// state. Implementations include the default SQLite store and an
// in-memory store for tests.
type DataStore interface {
	// Close closes the underlying storage connection.
	Close() error

	// ---- Users ----

	// CreateUser creates a new account and returns it with the assigned id.
	CreateUser(username, email, passwordHash string) (*model.User, error)

	// GetUserByID retrieves a user by id. Returns (nil, nil) if not found.
	GetUserByID(id string) (*model.User, error)

	// GetUserByUsername retrieves a user by username, case-insensitive.
	// Returns (nil, nil) if not found.
	GetUserByUsername(username string) (*model.User, error)

	// SaveUser persists mutable account state (roles, blocks, ban flag).
	SaveUser(u *model.User) error

	// ListUsers returns all users.
	ListUsers() ([]model.User, error)

	// IsBanned reports whether the user carries a server-level ban.
	IsBanned(id string) (bool, error)

	// ---- Rooms ----

	// LoadRooms returns all persisted rooms.
	LoadRooms() ([]*model.Room, error)

	// SaveRoom upserts a room snapshot.
	SaveRoom(r *model.Room) error

	// DeleteRoom removes a room by id. Deleting an absent room is a no-op.
	DeleteRoom(id string) error
}

// Compile-time checks: both implementations satisfy DataStore.
var (
	_ DataStore = (*Store)(nil)
	_ DataStore = (*MemoryStore)(nil)
)
