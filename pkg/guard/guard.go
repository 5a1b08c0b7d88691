// Package guard implements the risk admission gate: hard stops on daily loss
// and open-position count, evaluated before any dispatch.
package guard

import (
	"fmt"
	"sync"
)

// Reasons attached to guard rejections. Rejections are expected, healthy
// policy outcomes and are logged as skips, never as failures.
const (
	ReasonDailyLoss    = "daily loss limit"
	ReasonMaxPositions = "max positions"
)

// Limits configures the two ceilings. Values are read per check so the guard
// picks up live configuration changes without restart.
type Limits struct {
	MaxDailyLossPct  float64 `yaml:"max_daily_loss_pct"`
	MaxOpenPositions int     `yaml:"max_open_positions"`
}

// Validate ensures the ceilings are usable.
func (l Limits) Validate() error {
	if l.MaxDailyLossPct <= 0 {
		return fmt.Errorf("guard: max_daily_loss_pct must be positive, got %v", l.MaxDailyLossPct)
	}
	if l.MaxOpenPositions <= 0 {
		return fmt.Errorf("guard: max_open_positions must be positive, got %d", l.MaxOpenPositions)
	}
	return nil
}

// Result is the outcome of an admission check.
type Result struct {
	OK     bool
	Reason string
}

// Guard holds process-wide risk state. The state is mutated only through the
// explicit update methods driven by the execution feedback loop; the guard
// itself performs no I/O and has no idea how the numbers are produced.
type Guard struct {
	mu sync.Mutex

	dailyPnLPercent   float64
	openPositionCount int
}

// New constructs a guard with zeroed state.
func New() *Guard { return &Guard{} }

// Check evaluates the ceilings in order; the first violation short-circuits.
func (g *Guard) Check(limits Limits) Result {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.dailyPnLPercent <= -limits.MaxDailyLossPct {
		return Result{OK: false, Reason: ReasonDailyLoss}
	}
	if g.openPositionCount >= limits.MaxOpenPositions {
		return Result{OK: false, Reason: ReasonMaxPositions}
	}
	return Result{OK: true}
}

// UpdateDailyPnL replaces the running daily PnL percentage.
func (g *Guard) UpdateDailyPnL(pct float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dailyPnLPercent = pct
}

// UpdateOpenPositions replaces the open-position count. Negative input is
// clamped to zero.
func (g *Guard) UpdateOpenPositions(count int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if count < 0 {
		count = 0
	}
	g.openPositionCount = count
}

// IncrementOpenPositions bumps the count after a successful placement; the
// close-event decrement is owned by whatever syncs broker state back in.
func (g *Guard) IncrementOpenPositions() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.openPositionCount++
}

// ResetDaily zeroes the daily PnL; invoked by the operator's daily rollover,
// never implicitly.
func (g *Guard) ResetDaily() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dailyPnLPercent = 0
}

// State returns the current counters for logging and journaling.
func (g *Guard) State() (dailyPnLPct float64, openPositions int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dailyPnLPercent, g.openPositionCount
}
