// Package clock provides the ledger clock: a time source that never runs
// backwards across calls, matching the host-ledger guarantee the treasury
// engine's yield accrual relies on.
package clock

import (
	"sync"
	"time"
)

// Ledger is a monotonic wall clock. If the system clock steps backwards,
// Now keeps returning the previous high-water mark until real time catches
// up again.
type Ledger struct {
	mu   sync.Mutex
	last time.Time
}

func NewLedger() *Ledger {
	return &Ledger{}
}

func (c *Ledger) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC()
	if now.Before(c.last) {
		return c.last
	}
	c.last = now
	return now
}

// Fixed is a test clock that returns a settable instant.
type Fixed struct {
	mu sync.Mutex
	t  time.Time
}

func NewFixed(t time.Time) *Fixed {
	return &Fixed{t: t}
}

func (c *Fixed) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Set moves the fixed clock. Moving backwards is allowed in tests even
// though the ledger clock never does.
func (c *Fixed) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// Advance moves the fixed clock forward by d and returns the new instant.
func (c *Fixed) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
	return c.t
}
