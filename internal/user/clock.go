package user

import (
	"sync"
	"time"
)

// IDClock hands out ids derived from the wall clock in milliseconds. When the
// clock has not moved past the last id issued (or observed), the next id is
// last+1, so ids are unique and strictly increasing within a process.
type IDClock struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// NewIDClock returns a clock reading time.Now.
func NewIDClock() *IDClock {
	return &IDClock{now: time.Now}
}

// NewIDClockAt returns a clock reading now; used by tests to pin time.
func NewIDClockAt(now func() time.Time) *IDClock {
	return &IDClock{now: now}
}

// Observe records ids already present in storage so that Next never reissues
// one of them.
func (c *IDClock) Observe(users []User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, u := range users {
		if u.ID > c.last {
			c.last = u.ID
		}
	}
}

// Next returns a fresh id.
func (c *IDClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.now().UnixMilli()
	if id <= c.last {
		id = c.last + 1
	}
	c.last = id
	return id
}
