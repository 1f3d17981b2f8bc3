// Package recordstore persists the user collection as a single unit. Every
// operation reads or writes the whole collection; there are no partial
// updates.
package recordstore

import (
	"context"

	"github.com/dusk-indust/usercrud/internal/user"
)

// Store is the backend holding the user collection.
// Implementations: FileStore (production), MemStore (testing), and the
// Observed decorator.
type Store interface {
	// Load returns the whole collection in insertion order. Missing or
	// unreadable storage yields an empty collection, not an error; only a
	// cancelled context is reported.
	Load(ctx context.Context) ([]user.User, error)

	// Save replaces the whole collection.
	Save(ctx context.Context, users []user.User) error
}
