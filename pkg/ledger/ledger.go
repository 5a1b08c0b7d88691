// Package ledger implements the cooldown ledger: the per-signal-identity
// record of successful executions that prevents re-trading the same signal
// inside its cooldown window.
package ledger

import (
	"sync"
	"time"
)

// DefaultWindow is the reference cooldown window between two successful
// executions of the same signal id.
const DefaultWindow = 2 * time.Hour

// Entry records the last successful execution for one signal id.
type Entry struct {
	SignalID       string    `json:"signal_id"`
	LastExecutedAt time.Time `json:"last_executed_at"`
}

// Cooldown is a mutex-guarded ledger keyed by signal identity. Keying is on
// signal id, not symbol: a fresh id on the same symbol is eligible
// immediately. Entries never expire for correctness, only for memory; Prune
// removes only entries already outside the window.
type Cooldown struct {
	mu      sync.Mutex
	window  time.Duration
	entries map[string]time.Time
}

// New constructs a ledger with the given window; non-positive falls back to
// DefaultWindow.
func New(window time.Duration) *Cooldown {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Cooldown{window: window, entries: make(map[string]time.Time)}
}

// Window returns the configured cooldown window.
func (c *Cooldown) Window() time.Duration { return c.window }

// IsEligible reports whether the signal id may be executed at the given
// instant: no prior success, or the prior success is at least one full window
// in the past.
func (c *Cooldown) IsEligible(signalID string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	last, ok := c.entries[signalID]
	if !ok {
		return true
	}
	return now.Sub(last) >= c.window
}

// Record upserts the last-executed timestamp for a signal id. Call this only
// after a successful placement; failed dispatches must stay retry-eligible.
func (c *Cooldown) Record(signalID string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[signalID] = now
}

// Prune evicts entries whose window has fully elapsed at now and returns the
// number removed. An entry still inside its window is never removed.
func (c *Cooldown) Prune(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for id, last := range c.entries {
		if now.Sub(last) >= c.window {
			delete(c.entries, id)
			removed++
		}
	}
	return removed
}

// Snapshot returns a copy of all entries, for persistence.
func (c *Cooldown) Snapshot() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, 0, len(c.entries))
	for id, last := range c.entries {
		out = append(out, Entry{SignalID: id, LastExecutedAt: last})
	}
	return out
}

// Restore loads entries into the ledger, keeping the most recent timestamp
// when an id is already present. Used to hydrate from persistence at startup.
func (c *Cooldown) Restore(entries []Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range entries {
		if e.SignalID == "" || e.LastExecutedAt.IsZero() {
			continue
		}
		if cur, ok := c.entries[e.SignalID]; !ok || e.LastExecutedAt.After(cur) {
			c.entries[e.SignalID] = e.LastExecutedAt
		}
	}
}

// Len reports the number of ledger entries, inert ones included.
func (c *Cooldown) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
