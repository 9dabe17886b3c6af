// Package directory maps switch positions to the users who should be
// notified when those switches are pressed. Records come from the remote
// service at startup and are kept in a local SQLite file so a press can be
// resolved without a network round trip.
package directory

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/herrera/callpanel/internal/api"
)

// User is one directory entry: the remote user bound to a switch position.
type User struct {
	ID          string
	AccessToken string
	Location    api.Location
	SwitchIndex int
}

// ErrNotFound is returned by Lookup when no user is bound to the requested
// switch position.
var ErrNotFound = errors.New("directory: no user for switch")

// Directory resolves a switch position to its user. This is the only
// contract the press handler needs.
type Directory interface {
	Lookup(ctx context.Context, switchIndex int) (User, error)
}

// Memory is a map-backed Directory for tests and bench setups.
type Memory struct {
	mu    sync.RWMutex
	users map[int]User
}

// NewMemory creates an empty in-memory directory.
func NewMemory() *Memory {
	return &Memory{users: make(map[int]User)}
}

// Put binds a user to its switch position.
func (m *Memory) Put(u User) {
	m.mu.Lock()
	m.users[u.SwitchIndex] = u
	m.mu.Unlock()
}

// Upsert binds a user to its switch position; it lets Memory stand in for
// the Store during Sync.
func (m *Memory) Upsert(ctx context.Context, u User) error {
	m.Put(u)
	return nil
}

// Lookup resolves a switch position.
func (m *Memory) Lookup(ctx context.Context, switchIndex int) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[switchIndex]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}
