// Package screener turns raw signal snapshots into a deterministically
// ordered, policy-filtered candidate list. Everything in this package is pure:
// same inputs, same outputs, no side effects.
package screener

import "signalpilot/pkg/signal"

// Grade buckets a composite score into a discrete quality tier.
type Grade string

const (
	GradeAPlus Grade = "A+"
	GradeA     Grade = "A"
	GradeB     Grade = "B"
	GradeC     Grade = "C"
)

// RankedSignal is a normalised signal plus the derived score and grade for
// this cycle. Ranked signals are never cached across cycles; they are
// recomputed from the latest snapshot every time.
type RankedSignal struct {
	signal.Normalized

	CompositeScore float64
	Grade          Grade
}

// DropReason identifies why a filter rejected a signal. Reasons feed logs and
// the cycle journal only; they never influence the trading decision itself.
type DropReason string

const (
	DropNone         DropReason = ""
	DropNotTradeable DropReason = "entry_price_missing"
	DropGrade        DropReason = "grade_below_floor"
	DropSpread       DropReason = "spread_above_ceiling"
	DropTimeframe    DropReason = "timeframe_excluded"
	DropRestricted   DropReason = "restricted_instrument"
)

// Skip records one signal excluded during ranking, with the reason.
type Skip struct {
	SignalID string     `json:"signal_id"`
	Symbol   string     `json:"symbol"`
	Reason   DropReason `json:"reason"`
}
