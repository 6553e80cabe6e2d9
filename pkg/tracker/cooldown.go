package tracker

import (
	"time"

	"github.com/unklstewy/atc-presence/pkg/clock"
)

// DefaultCooldown is the debounce window applied per callsign.
const DefaultCooldown = 60 * time.Second

// Cooldowns is a per-key debounce ledger. A key may fire when it has no
// mark yet or when its latest mark is at least the window old. It is a
// last-write debounce: the first event of a burst always fires, repeats
// inside the window do not. Entries never expire on their own.
type Cooldowns struct {
	clock  clock.Clock
	window time.Duration
	marks  map[string]time.Time
}

// NewCooldowns creates an empty ledger. A non-positive window falls back
// to DefaultCooldown.
func NewCooldowns(c clock.Clock, window time.Duration) *Cooldowns {
	if window <= 0 {
		window = DefaultCooldown
	}
	return &Cooldowns{
		clock:  c,
		window: window,
		marks:  make(map[string]time.Time),
	}
}

// MayFire reports whether key is outside its cooldown window.
func (c *Cooldowns) MayFire(key string) bool {
	last, ok := c.marks[key]
	if !ok {
		return true
	}
	return c.clock.Now().Sub(last) >= c.window
}

// Mark records the current time for key, replacing any earlier mark.
func (c *Cooldowns) Mark(key string) {
	c.marks[key] = c.clock.Now()
}

// Clear removes every entry.
func (c *Cooldowns) Clear() {
	clear(c.marks)
}

// Len returns the number of keys with a recorded mark.
func (c *Cooldowns) Len() int {
	return len(c.marks)
}

// Window returns the configured debounce window.
func (c *Cooldowns) Window() time.Duration {
	return c.window
}
