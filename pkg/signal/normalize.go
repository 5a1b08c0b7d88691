package signal

// Normalized is a Signal with every optional field resolved to a concrete
// value. Scoring and filtering operate exclusively on this shape so that
// fallback chains live in exactly one place.
type Normalized struct {
	Signal

	Confidence float64 // clamped to [0,1]
	RiskReward float64 // missing ratio defaults to 1
	Spread     float64 // bps, missing defaults to 0
	Entry      float64 // 0 when the source supplied no entry price
	HasLevels  bool    // both take-profit and stop-loss were supplied
	Level      Levels
}

// Levels carries the source-supplied price levels when HasLevels is set.
type Levels struct {
	TakeProfit float64
	StopLoss   float64
}

// Normalize resolves a Signal's optional fields. confidenceFallback is used
// when the source supplied no model confidence; pass 0 when no fallback is
// configured so that missing confidence never inflates a score.
func Normalize(s Signal, confidenceFallback float64) Normalized {
	n := Normalized{Signal: s, RiskReward: 1}

	conf := confidenceFallback
	if s.ModelConfidence != nil {
		conf = *s.ModelConfidence
	}
	n.Confidence = clamp01(conf)

	if s.RiskRewardRatio != nil && *s.RiskRewardRatio >= 0 {
		n.RiskReward = *s.RiskRewardRatio
	}
	if s.SpreadBps != nil && *s.SpreadBps > 0 {
		n.Spread = *s.SpreadBps
	}
	if s.EntryPrice != nil && *s.EntryPrice > 0 {
		n.Entry = *s.EntryPrice
	}
	if s.TakeProfit != nil && s.StopLoss != nil && *s.TakeProfit > 0 && *s.StopLoss > 0 {
		n.HasLevels = true
		n.Level = Levels{TakeProfit: *s.TakeProfit, StopLoss: *s.StopLoss}
	}
	return n
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
