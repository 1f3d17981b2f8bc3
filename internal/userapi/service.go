// Package userapi exposes the user collection over HTTP. Service holds the
// CRUD semantics; Server maps routes onto it; HTTPClient is the matching
// typed client.
package userapi

import (
	"context"
	"fmt"
	"sync"

	"github.com/dusk-indust/usercrud/internal/recordstore"
	"github.com/dusk-indust/usercrud/internal/user"
)

// Service implements the five CRUD operations as whole-collection
// read-modify-write cycles against a recordstore.Store. Mutations hold the
// write lock for the full load-mutate-save cycle, so concurrent requests in
// one process never lose updates.
type Service struct {
	mu     sync.RWMutex
	store  recordstore.Store
	clock  *user.IDClock
	events *Broker
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock replaces the id clock.
func WithClock(c *user.IDClock) ServiceOption {
	return func(s *Service) {
		s.clock = c
	}
}

// WithBroker publishes change events to b.
func WithBroker(b *Broker) ServiceOption {
	return func(s *Service) {
		s.events = b
	}
}

// NewService returns a Service over store.
func NewService(store recordstore.Store, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		clock:  user.NewIDClock(),
		events: NewBroker(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Events returns the broker that receives change events.
func (s *Service) Events() *Broker {
	return s.events
}

// Create assigns a fresh id, appends the record and saves the collection.
func (s *Service) Create(ctx context.Context, in user.CreateInput) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	s.clock.Observe(users)
	u := in.Build(s.clock.Next())
	users = append(users, u)

	if err := s.store.Save(ctx, users); err != nil {
		return nil, fmt.Errorf("save users: %w", err)
	}

	s.events.Publish(Event{Type: EventCreated, User: u.Clone()})
	return &u, nil
}

// List returns the whole collection in insertion order.
func (s *Service) List(ctx context.Context) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	if users == nil {
		users = []user.User{}
	}
	return users, nil
}

// Get returns the user with the given id, or user.ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	i := user.IndexOf(users, id)
	if i < 0 {
		return nil, fmt.Errorf("user %d: %w", id, user.ErrNotFound)
	}
	return &users[i], nil
}

// Update merges p onto the stored record. The id always stays the one the
// caller addressed, whatever the patch carried.
func (s *Service) Update(ctx context.Context, id int64, p user.Patch) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	i := user.IndexOf(users, id)
	if i < 0 {
		return nil, fmt.Errorf("user %d: %w", id, user.ErrNotFound)
	}

	merged := p.Apply(users[i])
	merged.ID = id
	users[i] = merged

	if err := s.store.Save(ctx, users); err != nil {
		return nil, fmt.Errorf("save users: %w", err)
	}

	s.events.Publish(Event{Type: EventUpdated, User: merged.Clone()})
	return &merged, nil
}

// Delete removes the user with the given id. Deleting an absent id returns
// user.ErrNotFound and leaves storage untouched.
func (s *Service) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}

	filtered := make([]user.User, 0, len(users))
	var removed user.User
	for _, u := range users {
		if u.ID == id {
			removed = u
			continue
		}
		filtered = append(filtered, u)
	}
	if len(filtered) == len(users) {
		return fmt.Errorf("user %d: %w", id, user.ErrNotFound)
	}

	if err := s.store.Save(ctx, filtered); err != nil {
		return fmt.Errorf("save users: %w", err)
	}

	s.events.Publish(Event{Type: EventDeleted, User: removed})
	return nil
}
