package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mlaroche/chatnet/pkg/model"
)

// MemoryStore is an in-memory DataStore used by tests and by servers run
// without a database path. It mirrors the SQLite store's behavior,
// including case-insensitive usernames and (nil, nil) for absent users.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]*model.User // keyed by id
	rooms map[string]*model.Room
	now   func() time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *MemoryStore {
	return NewMemoryWithClock(time.Now)
}

// NewMemoryWithClock returns an in-memory store with an injectable clock.
func NewMemoryWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		users: make(map[string]*model.User),
		rooms: make(map[string]*model.Room),
		now:   now,
	}
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error { return nil }

// cloneUser deep-copies a user so callers and the store never share the
// Roles or BlockedUsers backing arrays.
func cloneUser(u *model.User) *model.User {
	cp := *u
	if u.Roles != nil {
		cp.Roles = append(model.RoleSet(nil), u.Roles...)
	}
	if u.BlockedUsers != nil {
		cp.BlockedUsers = append([]string(nil), u.BlockedUsers...)
	}
	return &cp
}

func (m *MemoryStore) CreateUser(username, email, passwordHash string) (*model.User, error) {
	if err := model.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("store: create user: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) {
			return nil, fmt.Errorf("store: username %q already taken", username)
		}
	}

	u := &model.User{
		ID:           "user-" + uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Roles:        model.RoleSet{model.RoleUser},
		CreatedAt:    m.now().UTC(),
	}
	m.users[u.ID] = u

	return cloneUser(u), nil
}

func (m *MemoryStore) GetUserByID(id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return cloneUser(u), nil
}

func (m *MemoryStore) GetUserByUsername(username string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) SaveUser(u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[u.ID]; !ok {
		return fmt.Errorf("store: save user: %w", model.ErrUserNotFound)
	}
	m.users[u.ID] = cloneUser(u)
	return nil
}

func (m *MemoryStore) ListUsers() ([]model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, *cloneUser(u))
	}
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

func (m *MemoryStore) IsBanned(id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return false, nil
	}
	return u.Banned, nil
}

func (m *MemoryStore) LoadRooms() ([]*model.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rooms := make([]*model.Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		cp := r.Clone()
		rooms = append(rooms, &cp)
	}
	sort.Slice(rooms, func(i, j int) bool {
		if !rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
		}
		return rooms[i].ID < rooms[j].ID
	})
	return rooms, nil
}

func (m *MemoryStore) SaveRoom(r *model.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := r.Clone()
	m.rooms[r.ID] = &cp
	return nil
}

func (m *MemoryStore) DeleteRoom(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.rooms, id)
	return nil
}
