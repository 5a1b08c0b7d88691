// Package settings holds the user-tunable risk parameters shared by every
// cycle. A Settings value is immutable once handed out; updates replace the
// whole struct so concurrent readers never observe a partial write.
package settings

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Settings are the tunable risk parameters read at the start of every cycle.
type Settings struct {
	DefaultSLPct float64 `json:"default_sl_pct" yaml:"default_sl_pct"`
	DefaultTPPct float64 `json:"default_tp_pct" yaml:"default_tp_pct"`
	ScalpSLPct   float64 `json:"scalp_sl_pct" yaml:"scalp_sl_pct"`
	ScalpTPPct   float64 `json:"scalp_tp_pct" yaml:"scalp_tp_pct"`
	MaxLeverage  int     `json:"max_leverage" yaml:"max_leverage"`
}

// Default returns the reference configuration.
func Default() Settings {
	return Settings{
		DefaultSLPct: 0.02,
		DefaultTPPct: 0.04,
		ScalpSLPct:   0.005,
		ScalpTPPct:   0.01,
		MaxLeverage:  10,
	}
}

// Validate ensures the parameters are usable for level derivation.
func (s Settings) Validate() error {
	check := func(name string, v float64) error {
		if v <= 0 || v >= 1 {
			return fmt.Errorf("settings: %s must be within (0,1), got %v", name, v)
		}
		return nil
	}
	if err := check("default_sl_pct", s.DefaultSLPct); err != nil {
		return err
	}
	if err := check("default_tp_pct", s.DefaultTPPct); err != nil {
		return err
	}
	if err := check("scalp_sl_pct", s.ScalpSLPct); err != nil {
		return err
	}
	if err := check("scalp_tp_pct", s.ScalpTPPct); err != nil {
		return err
	}
	if s.MaxLeverage < 1 {
		return errors.New("settings: max_leverage must be at least 1")
	}
	return nil
}

// Patch carries a partial update; nil fields are left unchanged.
type Patch struct {
	DefaultSLPct *float64 `json:"default_sl_pct,omitempty"`
	DefaultTPPct *float64 `json:"default_tp_pct,omitempty"`
	ScalpSLPct   *float64 `json:"scalp_sl_pct,omitempty"`
	ScalpTPPct   *float64 `json:"scalp_tp_pct,omitempty"`
	MaxLeverage  *int     `json:"max_leverage,omitempty"`
}

// Apply merges the patch into a copy of base (last write wins).
func (p Patch) Apply(base Settings) Settings {
	out := base
	if p.DefaultSLPct != nil {
		out.DefaultSLPct = *p.DefaultSLPct
	}
	if p.DefaultTPPct != nil {
		out.DefaultTPPct = *p.DefaultTPPct
	}
	if p.ScalpSLPct != nil {
		out.ScalpSLPct = *p.ScalpSLPct
	}
	if p.ScalpTPPct != nil {
		out.ScalpTPPct = *p.ScalpTPPct
	}
	if p.MaxLeverage != nil {
		out.MaxLeverage = *p.MaxLeverage
	}
	return out
}

// Store abstracts the persistence collaborator holding the shared settings.
type Store interface {
	// Get returns the current settings snapshot.
	Get(ctx context.Context) (Settings, error)
	// Update merges the patch into the stored settings and returns the result.
	Update(ctx context.Context, patch Patch) (Settings, error)
}

// MemoryStore is an in-process Store with atomic whole-struct replacement.
type MemoryStore struct {
	mu      sync.RWMutex
	current Settings
}

// NewMemoryStore constructs a MemoryStore seeded with initial. Invalid
// initial values fall back to the reference defaults.
func NewMemoryStore(initial Settings) *MemoryStore {
	if initial.Validate() != nil {
		initial = Default()
	}
	return &MemoryStore{current: initial}
}

// Get implements Store.
func (m *MemoryStore) Get(ctx context.Context) (Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, nil
}

// Update implements Store. The merged result must validate; a rejected patch
// leaves the stored settings untouched.
func (m *MemoryStore) Update(ctx context.Context, patch Patch) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := patch.Apply(m.current)
	if err := next.Validate(); err != nil {
		return m.current, err
	}
	m.current = next
	return next, nil
}
