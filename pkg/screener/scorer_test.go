package screener

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"signalpilot/pkg/signal"
)

func normalized(conf, rr, spread float64) signal.Normalized {
	return signal.Normalize(signal.Signal{
		ID:              "sig-1",
		Symbol:          "BTC",
		Direction:       signal.DirectionBuy,
		ModelConfidence: &conf,
		RiskRewardRatio: &rr,
		SpreadBps:       &spread,
	}, 0)
}

func TestScore_Composition(t *testing.T) {
	// 0.70*0.8 + 0.25*(2/3) - 0.05*(10/100)
	got := Score(normalized(0.8, 2.0, 10))
	assert.InDelta(t, 0.56+0.25*(2.0/3.0)-0.005, got, 1e-9)
}

func TestScore_RiskRewardSaturates(t *testing.T) {
	at3 := Score(normalized(0.5, 3.0, 0))
	beyond := Score(normalized(0.5, 10.0, 0))
	assert.Equal(t, at3, beyond)
}

func TestScore_SpreadPenalty(t *testing.T) {
	clean := Score(normalized(0.9, 1.0, 0))
	wide := Score(normalized(0.9, 1.0, 50))
	assert.InDelta(t, 0.025, clean-wide, 1e-9)
}

func TestScore_ClampsToUnitInterval(t *testing.T) {
	conf := 1.0
	rr := 3.0
	top := Score(normalized(conf, rr, 0))
	assert.LessOrEqual(t, top, 1.0)

	floor := Score(normalized(0, 0, 10000))
	assert.Equal(t, 0.0, floor)
}

func TestScore_MissingConfidenceNeverInflates(t *testing.T) {
	// No confidence and no fallback: only the risk/reward term remains.
	n := signal.Normalize(signal.Signal{
		ID:        "sig-2",
		Symbol:    "ETH",
		Direction: signal.DirectionSell,
	}, 0)
	assert.InDelta(t, 0.25*(1.0/3.0), Score(n), 1e-9)
}

func TestScore_Deterministic(t *testing.T) {
	n := normalized(0.73, 1.8, 12)
	first := Score(n)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Score(n))
	}
}

func TestGradeFor_InclusiveBoundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  Grade
	}{
		{0.95, GradeAPlus},
		{0.90, GradeAPlus}, // boundary takes the higher grade
		{0.8999999, GradeA},
		{0.80, GradeA},
		{0.7999999, GradeB},
		{0.65, GradeB},
		{0.6499999, GradeC},
		{0, GradeC},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GradeFor(tt.score), "score %v", tt.score)
	}
}
