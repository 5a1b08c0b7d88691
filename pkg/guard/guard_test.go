package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func limits() Limits {
	return Limits{MaxDailyLossPct: 5, MaxOpenPositions: 3}
}

func TestCheck_FreshGuardAdmits(t *testing.T) {
	g := New()
	res := g.Check(limits())
	assert.True(t, res.OK)
	assert.Empty(t, res.Reason)
}

func TestCheck_DailyLossCeiling(t *testing.T) {
	g := New()

	g.UpdateDailyPnL(-4.99)
	assert.True(t, g.Check(limits()).OK)

	g.UpdateDailyPnL(-5)
	res := g.Check(limits())
	assert.False(t, res.OK, "ceiling is inclusive")
	assert.Equal(t, ReasonDailyLoss, res.Reason)

	g.UpdateDailyPnL(-6)
	res = g.Check(limits())
	assert.False(t, res.OK)
	assert.Equal(t, ReasonDailyLoss, res.Reason)

	g.UpdateDailyPnL(3)
	assert.True(t, g.Check(limits()).OK, "profit never trips the loss limit")
}

func TestCheck_MaxPositions(t *testing.T) {
	g := New()
	g.UpdateOpenPositions(3)
	res := g.Check(limits())
	assert.False(t, res.OK)
	assert.Equal(t, ReasonMaxPositions, res.Reason)

	g.UpdateOpenPositions(2)
	assert.True(t, g.Check(limits()).OK)
}

func TestCheck_DailyLossWinsWhenBothTrip(t *testing.T) {
	g := New()
	g.UpdateDailyPnL(-10)
	g.UpdateOpenPositions(10)
	res := g.Check(limits())
	require.False(t, res.OK)
	assert.Equal(t, ReasonDailyLoss, res.Reason, "checks run in a fixed order")
}

func TestUpdateOpenPositions_ClampsNegative(t *testing.T) {
	g := New()
	g.UpdateOpenPositions(-2)
	_, open := g.State()
	assert.Equal(t, 0, open)
}

func TestIncrementAndReset(t *testing.T) {
	g := New()
	g.IncrementOpenPositions()
	g.IncrementOpenPositions()
	g.UpdateDailyPnL(-1.5)

	pnl, open := g.State()
	assert.Equal(t, -1.5, pnl)
	assert.Equal(t, 2, open)

	g.ResetDaily()
	pnl, open = g.State()
	assert.Equal(t, 0.0, pnl)
	assert.Equal(t, 2, open, "daily reset leaves position count alone")
}

func TestLimitsValidate(t *testing.T) {
	assert.NoError(t, limits().Validate())
	assert.Error(t, Limits{MaxDailyLossPct: 0, MaxOpenPositions: 1}.Validate())
	assert.Error(t, Limits{MaxDailyLossPct: 5, MaxOpenPositions: 0}.Validate())
}
