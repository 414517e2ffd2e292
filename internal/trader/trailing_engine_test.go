package trader

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/powertrader/powertrader/internal/config"
)

// TestPMStartLine picks the DCA-adjusted percentage
func TestPMStartLine(t *testing.T) {
	tr := NewTrailingEngine(config.Default()) // 5% no DCA, 2.5% with

	pos := testPosition("BTC", 100, 1, 0)
	assert.InDelta(t, 105.0, tr.PMStartLine(pos), 1e-9)

	pos.DCACount = 1
	assert.InDelta(t, 102.5, tr.PMStartLine(pos), 1e-9)

	empty := testPosition("BTC", 0, 0, 0)
	assert.Equal(t, 0.0, tr.PMStartLine(empty))
}

// TestTrailing_ActivatesAtStartLine flips active on the first touch
func TestTrailing_ActivatesAtStartLine(t *testing.T) {
	tr := NewTrailingEngine(config.Default())
	pos := testPosition("BTC", 100, 1, 0)

	tr.Update(pos, 104)
	assert.False(t, pos.TrailingActive)
	assert.InDelta(t, 105.0, pos.TrailingLine, 1e-9)

	tr.Update(pos, 105)
	assert.True(t, pos.TrailingActive)
	assert.Equal(t, 105.0, pos.TrailingPeak)
}

// TestTrailing_LineFollowsPeak ratchets up with the gap, floored at start
func TestTrailing_LineFollowsPeak(t *testing.T) {
	tr := NewTrailingEngine(config.Default()) // gap 0.5%
	pos := testPosition("BTC", 100, 1, 0)

	tr.Update(pos, 106)
	assert.True(t, pos.TrailingActive)
	// 106 * 0.995 = 105.47 above the 105 floor
	assert.InDelta(t, 105.47, pos.TrailingLine, 1e-9)

	tr.Update(pos, 110)
	assert.InDelta(t, 109.45, pos.TrailingLine, 1e-9)

	// Price falls but the line never drops
	tr.Update(pos, 107)
	assert.InDelta(t, 109.45, pos.TrailingLine, 1e-9)
	assert.Equal(t, 110.0, pos.TrailingPeak)
}

// TestTrailing_FloorAtStartLine keeps the line at the floor just after activation
func TestTrailing_FloorAtStartLine(t *testing.T) {
	tr := NewTrailingEngine(config.Default())
	pos := testPosition("BTC", 100, 1, 0)

	// Activate exactly at the line: peak*0.995 sits below the floor
	tr.Update(pos, 105)
	assert.True(t, pos.TrailingActive)
	assert.InDelta(t, 105.0, pos.TrailingLine, 1e-9)
}

// TestShouldExit_RequiresPriorTickAbove exits only on a crossover
func TestShouldExit_RequiresPriorTickAbove(t *testing.T) {
	tr := NewTrailingEngine(config.Default())
	pos := testPosition("BTC", 100, 1, 0)

	// Inactive: never exits
	assert.False(t, tr.ShouldExit(pos, 90))

	tr.Update(pos, 110) // activates, was_above=true, line=109.45
	assert.False(t, tr.ShouldExit(pos, 110))
	assert.True(t, tr.ShouldExit(pos, 109))

	// After observing a below-line tick, the crossover is consumed
	tr.Update(pos, 109)
	assert.False(t, tr.ShouldExit(pos, 108))
}

// TestTrailing_ResetAfterBuy restarts the state machine
func TestTrailing_ResetAfterBuy(t *testing.T) {
	tr := NewTrailingEngine(config.Default())
	pos := testPosition("BTC", 100, 1, 0)

	tr.Update(pos, 110)
	assert.True(t, pos.TrailingActive)

	pos.ResetTrailing()
	assert.False(t, pos.TrailingActive)
	assert.Equal(t, 0.0, pos.TrailingPeak)
	assert.False(t, tr.ShouldExit(pos, 50))
}

// TestTrailing_DCADropsStartLine lowers the activation threshold mid-trade
func TestTrailing_DCADropsStartLine(t *testing.T) {
	tr := NewTrailingEngine(config.Default())
	pos := testPosition("BTC", 100, 1, 0)

	tr.Update(pos, 104)
	assert.False(t, pos.TrailingActive)

	// A DCA at the same average drops the start line to 102.5
	pos.DCACount = 1
	pos.ResetTrailing()
	tr.Update(pos, 103)
	assert.True(t, pos.TrailingActive)
}
