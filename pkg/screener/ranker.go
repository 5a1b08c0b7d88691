package screener

import (
	"sort"

	"signalpilot/pkg/signal"
)

// Ranker composes normalisation, scoring and the filter chain over a signal
// batch. Given identical inputs it always produces the same ordered output,
// which is what makes replay-based testing possible.
type Ranker struct {
	cfg   *Config
	chain Chain
}

// NewRanker builds a ranker over the autonomous filter chain.
func NewRanker(cfg *Config) *Ranker {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Ranker{cfg: cfg, chain: cfg.AutonomousChain()}
}

// NewRankerWithChain builds a ranker over a caller-supplied chain (manual
// review paths).
func NewRankerWithChain(cfg *Config, chain Chain) *Ranker {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Ranker{cfg: cfg, chain: chain}
}

// Rank validates, normalises, scores, filters and orders a raw batch.
// Malformed signals and filter drops come back as skips; they are healthy
// operation, not errors. The eligible list is best-first: score descending,
// most recent observation first on ties.
func (r *Ranker) Rank(batch []signal.Signal) ([]RankedSignal, []Skip) {
	eligible := make([]RankedSignal, 0, len(batch))
	var skips []Skip

	for i := range batch {
		s := batch[i]
		if err := s.Validate(); err != nil {
			skips = append(skips, Skip{SignalID: s.ID, Symbol: s.Symbol, Reason: DropReason("invalid: " + err.Error())})
			continue
		}
		rs := rankOne(signal.Normalize(s, r.cfg.ConfidenceFallback))
		if ok, _, reason := r.chain.Apply(rs); !ok {
			skips = append(skips, Skip{SignalID: s.ID, Symbol: s.Symbol, Reason: reason})
			continue
		}
		eligible = append(eligible, rs)
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if a.CompositeScore != b.CompositeScore {
			return a.CompositeScore > b.CompositeScore
		}
		if !a.ObservedAt.Equal(b.ObservedAt) {
			return a.ObservedAt.After(b.ObservedAt)
		}
		return a.ID < b.ID
	})
	return eligible, skips
}
