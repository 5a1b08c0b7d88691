package screener

import "signalpilot/pkg/signal"

// Composite score weights and grade thresholds. These are deliberately
// compile-time constants, not configuration: changing the ladder changes the
// observable behaviour of every downstream consumer and is a versioned event.
const (
	confidenceWeight = 0.70
	riskRewardWeight = 0.25
	spreadWeight     = 0.05

	// Risk:reward saturates at 3:1; anything beyond contributes no extra score.
	riskRewardCap = 3.0
	// 100 bps of spread equals one full penalty unit.
	spreadPenaltyUnitBps = 100.0

	gradeAPlusMin = 0.90
	gradeAMin     = 0.80
	gradeBMin     = 0.65
)

// Score computes the composite score for a normalised signal, clamped to
// [0,1]. Missing confidence has already been resolved to its fallback (or 0)
// during normalisation, so absent model output can never inflate a score.
func Score(n signal.Normalized) float64 {
	rr := n.RiskReward
	if rr > riskRewardCap {
		rr = riskRewardCap
	}
	rrNorm := rr / riskRewardCap
	spreadPenalty := n.Spread / spreadPenaltyUnitBps

	score := confidenceWeight*n.Confidence + riskRewardWeight*rrNorm - spreadWeight*spreadPenalty
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// GradeFor maps a composite score onto the fixed threshold ladder. Thresholds
// are inclusive: a score sitting exactly on a boundary takes the higher grade.
func GradeFor(score float64) Grade {
	switch {
	case score >= gradeAPlusMin:
		return GradeAPlus
	case score >= gradeAMin:
		return GradeA
	case score >= gradeBMin:
		return GradeB
	default:
		return GradeC
	}
}

func rankOne(n signal.Normalized) RankedSignal {
	score := Score(n)
	return RankedSignal{Normalized: n, CompositeScore: score, Grade: GradeFor(score)}
}
