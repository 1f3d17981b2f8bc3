package recordstore

import (
	"context"
	"sync"

	"github.com/dusk-indust/usercrud/internal/user"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store in memory. Thread-safe via sync.RWMutex. Load and
// Save copy the collection, so callers may mutate what they get back.
type MemStore struct {
	mu    sync.RWMutex
	users []user.User
	saves int

	// SaveErr, when set, is returned by every Save.
	SaveErr error
}

// NewMemStore returns a MemStore seeded with a copy of users.
func NewMemStore(users ...user.User) *MemStore {
	return &MemStore{users: user.CloneAll(users)}
}

// Load returns a deep copy of the collection.
func (m *MemStore) Load(ctx context.Context) ([]user.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return user.CloneAll(m.users), nil
}

// Save replaces the collection with a deep copy of users.
func (m *MemStore) Save(ctx context.Context, users []user.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.users = user.CloneAll(users)
	m.saves++
	return nil
}

// Saves reports how many successful Save calls the store has seen.
func (m *MemStore) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}
