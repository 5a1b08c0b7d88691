package screener

import (
	"regexp"
	"strings"
)

// Filter is one independent keep/drop predicate over a ranked signal.
type Filter interface {
	Name() string
	// Check returns true to keep the signal, or false plus the drop reason.
	Check(rs RankedSignal) (bool, DropReason)
}

// Chain applies filters in order; the first drop wins. A signal surviving the
// whole chain is eligible.
type Chain []Filter

// Apply runs the chain. The returned name identifies the dropping filter for
// observability.
func (c Chain) Apply(rs RankedSignal) (bool, string, DropReason) {
	for _, f := range c {
		if ok, reason := f.Check(rs); !ok {
			return false, f.Name(), reason
		}
	}
	return true, "", DropNone
}

// TradeableFilter drops signals without a usable entry price. Zero-entry
// signals produce all-zero risk levels upstream; this is where they exit.
type TradeableFilter struct{}

func (TradeableFilter) Name() string { return "tradeable" }

func (TradeableFilter) Check(rs RankedSignal) (bool, DropReason) {
	if rs.Entry <= 0 {
		return false, DropNotTradeable
	}
	return true, DropNone
}

// GradeFilter keeps only signals whose grade is in the allowed set.
type GradeFilter struct {
	Allowed map[Grade]bool
}

// AutonomousGradeFilter returns the hard-coded grade floor for unattended
// dispatch. Manual-review chains may be laxer; this one may not.
func AutonomousGradeFilter() GradeFilter {
	return GradeFilter{Allowed: map[Grade]bool{GradeAPlus: true, GradeA: true}}
}

func (GradeFilter) Name() string { return "grade" }

func (f GradeFilter) Check(rs RankedSignal) (bool, DropReason) {
	if !f.Allowed[rs.Grade] {
		return false, DropGrade
	}
	return true, DropNone
}

// SpreadFilter drops signals whose quoted spread exceeds the ceiling.
type SpreadFilter struct {
	MaxSpreadBps float64
}

func (SpreadFilter) Name() string { return "spread" }

func (f SpreadFilter) Check(rs RankedSignal) (bool, DropReason) {
	if f.MaxSpreadBps > 0 && rs.Spread > f.MaxSpreadBps {
		return false, DropSpread
	}
	return true, DropNone
}

// TimeframeFilter drops signals on excluded timeframe buckets. Short
// timeframes are excluded from autonomous execution by policy, not by score.
type TimeframeFilter struct {
	Excluded map[string]bool
}

func (TimeframeFilter) Name() string { return "timeframe" }

func (f TimeframeFilter) Check(rs RankedSignal) (bool, DropReason) {
	if f.Excluded[strings.ToLower(strings.TrimSpace(rs.Timeframe))] {
		return false, DropTimeframe
	}
	return true, DropNone
}

// RestrictedFilter drops symbols in a maintained high-fee/high-risk
// classification: an exact-match set plus compiled pattern rules. The
// classification is injected configuration, a policy input rather than domain
// truth.
type RestrictedFilter struct {
	exact    map[string]bool
	patterns []*regexp.Regexp
}

// NewRestrictedFilter builds the filter from exact symbols and regexp
// patterns. Symbols are matched case-insensitively.
func NewRestrictedFilter(symbols []string, patterns []*regexp.Regexp) RestrictedFilter {
	exact := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			exact[s] = true
		}
	}
	return RestrictedFilter{exact: exact, patterns: patterns}
}

func (RestrictedFilter) Name() string { return "restricted" }

func (f RestrictedFilter) Check(rs RankedSignal) (bool, DropReason) {
	if f.Matches(rs.Symbol) {
		return false, DropRestricted
	}
	return true, DropNone
}

// Matches reports whether a symbol falls in the restricted classification.
// Exported so the manual override path can apply the risk adjustment instead
// of dropping.
func (f RestrictedFilter) Matches(symbol string) bool {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if sym == "" {
		return false
	}
	if f.exact[sym] {
		return true
	}
	for _, p := range f.patterns {
		if p.MatchString(sym) {
			return true
		}
	}
	return false
}
