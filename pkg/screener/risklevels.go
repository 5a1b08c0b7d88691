package screener

import (
	"math"

	"signalpilot/pkg/settings"
	"signalpilot/pkg/signal"
)

// Mode selects which stop/target percentages apply when the signal brings no
// explicit levels of its own.
type Mode string

const (
	ModeNormal Mode = "normal"
	ModeScalp  Mode = "scalp"
)

// RiskLevels are the derived stop-loss/take-profit levels for one entry.
// Always recomputed from the current settings snapshot, never stored.
type RiskLevels struct {
	StopLoss        float64 `json:"stop_loss"`
	TakeProfit      float64 `json:"take_profit"`
	RiskRewardRatio float64 `json:"risk_reward_ratio"`
	SLPercent       float64 `json:"sl_percent"`
	TPPercent       float64 `json:"tp_percent"`
}

// ComputeRiskLevels derives levels for an entry price. When the signal
// supplies both an explicit stop and target, those win and the ratio is
// computed directly from them; settings-based percentages apply otherwise.
// A zero entry yields all-zero levels: a defined degenerate output that the
// filter chain flags non-tradeable, not an error.
func ComputeRiskLevels(entry float64, dir signal.Direction, mode Mode, override *signal.Levels, st settings.Settings) RiskLevels {
	if entry <= 0 {
		return RiskLevels{}
	}

	if override != nil && override.StopLoss > 0 && override.TakeProfit > 0 {
		risk := math.Abs(entry - override.StopLoss)
		reward := math.Abs(override.TakeProfit - entry)
		rr := 0.0
		if risk > 0 {
			rr = reward / risk
		}
		return RiskLevels{
			StopLoss:        override.StopLoss,
			TakeProfit:      override.TakeProfit,
			RiskRewardRatio: rr,
			SLPercent:       risk / entry,
			TPPercent:       reward / entry,
		}
	}

	slPct, tpPct := st.DefaultSLPct, st.DefaultTPPct
	if mode == ModeScalp {
		slPct, tpPct = st.ScalpSLPct, st.ScalpTPPct
	}

	var stop, target float64
	if dir == signal.DirectionBuy {
		stop = entry * (1 - slPct)
		target = entry * (1 + tpPct)
	} else {
		stop = entry * (1 + slPct)
		target = entry * (1 - tpPct)
	}
	rr := 0.0
	if slPct > 0 {
		rr = tpPct / slPct
	}
	return RiskLevels{
		StopLoss:        stop,
		TakeProfit:      target,
		RiskRewardRatio: rr,
		SLPercent:       slPct,
		TPPercent:       tpPct,
	}
}

// Minimum stop distance applied to restricted instruments traded through the
// manual override path.
const restrictedMinSLPct = 0.02

// RestrictedAdjustment tightens risk parameters for a restricted instrument
// that an operator chose to trade anyway: notional is halved and the stop is
// pushed out to at least 2% from entry. Pure; the caller decides whether it
// applies.
func RestrictedAdjustment(notionalUSD float64, entry float64, dir signal.Direction, lv RiskLevels) (float64, RiskLevels) {
	adjusted := lv
	if entry > 0 && adjusted.SLPercent < restrictedMinSLPct {
		adjusted.SLPercent = restrictedMinSLPct
		if dir == signal.DirectionBuy {
			adjusted.StopLoss = entry * (1 - restrictedMinSLPct)
		} else {
			adjusted.StopLoss = entry * (1 + restrictedMinSLPct)
		}
		if adjusted.SLPercent > 0 {
			adjusted.RiskRewardRatio = adjusted.TPPercent / adjusted.SLPercent
		}
	}
	return notionalUSD / 2, adjusted
}
