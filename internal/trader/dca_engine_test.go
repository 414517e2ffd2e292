package trader

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/powertrader/powertrader/internal/config"
	"github.com/powertrader/powertrader/pkg/types"
)

func testPosition(coin string, avgPrice, qty float64, dcaCount int) *types.Position {
	return &types.Position{
		Coin:         coin,
		EntryPrice:   avgPrice,
		Quantity:     qty,
		CostBasisUSD: avgPrice * qty,
		DCACount:     dcaCount,
	}
}

func fixedClock(t0 time.Time) func() time.Time {
	return func() time.Time { return t0 }
}

// TestShouldDCA_HardThreshold fires when PnL hits the stage level
func TestShouldDCA_HardThreshold(t *testing.T) {
	d := NewDCAEngine(config.Default())
	pos := testPosition("BTC", 100, 1, 0)

	// Stage 0 threshold is -2.5%
	ok, reason := d.ShouldDCA(pos, 97.5, 0)
	assert.True(t, ok)
	assert.Equal(t, "hard_stage_0", reason)

	ok, _ = d.ShouldDCA(pos, 98.0, 0)
	assert.False(t, ok)
}

// TestShouldDCA_HardPrecedence prefers the hard reason when both trigger
func TestShouldDCA_HardPrecedence(t *testing.T) {
	d := NewDCAEngine(config.Default())
	pos := testPosition("BTC", 100, 1, 0)

	// -3% PnL trips hard stage 0, and signal 4 would trip neural too
	ok, reason := d.ShouldDCA(pos, 97, 4)
	assert.True(t, ok)
	assert.Equal(t, "hard_stage_0", reason)
}

// TestShouldDCA_NeuralStages requires loss plus the stage-shifted level
func TestShouldDCA_NeuralStages(t *testing.T) {
	d := NewDCAEngine(config.Default())

	// Stage 0 needs level 4 and a loss
	pos := testPosition("BTC", 100, 1, 0)
	ok, reason := d.ShouldDCA(pos, 99, 4)
	assert.True(t, ok)
	assert.Equal(t, "neural_4", reason)

	// Not in loss: no neural trigger
	ok, _ = d.ShouldDCA(pos, 101, 7)
	assert.False(t, ok)

	// Stage 2 needs level 6
	pos = testPosition("BTC", 100, 1, 2)
	ok, _ = d.ShouldDCA(pos, 99, 5)
	assert.False(t, ok)
	ok, reason = d.ShouldDCA(pos, 99, 6)
	assert.True(t, ok)
	assert.Equal(t, "neural_6", reason)
}

// TestShouldDCA_NoNeuralPastStageFour limits neural DCA to the first stages
func TestShouldDCA_NoNeuralPastStageFour(t *testing.T) {
	d := NewDCAEngine(config.Default())
	pos := testPosition("BTC", 100, 1, 4)

	// Level 7 would have been enough at earlier stages
	ok, _ := d.ShouldDCA(pos, 99, 7)
	assert.False(t, ok)
}

// TestShouldDCA_DeepStagesRepeatLastLevel reuses the deepest threshold
func TestShouldDCA_DeepStagesRepeatLastLevel(t *testing.T) {
	d := NewDCAEngine(config.Default())
	pos := testPosition("BTC", 100, 1, 20)

	ok, reason := d.ShouldDCA(pos, 49, 0)
	assert.True(t, ok)
	assert.Equal(t, "hard_stage_20", reason)

	ok, _ = d.ShouldDCA(pos, 51, 0)
	assert.False(t, ok)
}

// TestRateLimit_Window blocks after the configured buys per 24h
func TestRateLimit_Window(t *testing.T) {
	cfg := config.Default() // max 2 per 24h
	d := NewDCAEngine(cfg)
	now := time.Now()
	d.now = fixedClock(now)

	assert.True(t, d.WithinRateLimit("BTC"))
	d.RecordDCABuy("BTC", float64(now.Unix())-3600)
	assert.True(t, d.WithinRateLimit("BTC"))
	d.RecordDCABuy("BTC", float64(now.Unix())-1800)
	assert.False(t, d.WithinRateLimit("BTC"))

	// Rate-limited coin never DCAs regardless of PnL
	pos := testPosition("BTC", 100, 1, 0)
	ok, _ := d.ShouldDCA(pos, 50, 7)
	assert.False(t, ok)
}

// TestRateLimit_ExpiresAfterWindow frees slots once buys age out
func TestRateLimit_ExpiresAfterWindow(t *testing.T) {
	d := NewDCAEngine(config.Default())
	now := time.Now()
	d.now = fixedClock(now)

	stale := float64(now.Add(-25 * time.Hour).Unix())
	d.RecordDCABuy("BTC", stale)
	d.RecordDCABuy("BTC", stale)
	assert.True(t, d.WithinRateLimit("BTC"))
}

// TestRateLimit_SellResetsWindow only counts buys after the last sell
func TestRateLimit_SellResetsWindow(t *testing.T) {
	d := NewDCAEngine(config.Default())
	now := time.Now()
	d.now = fixedClock(now)

	ts := float64(now.Unix())
	d.RecordDCABuy("BTC", ts-3600)
	d.RecordDCABuy("BTC", ts-1800)
	assert.False(t, d.WithinRateLimit("BTC"))

	d.RecordSell("BTC", ts-900)
	assert.True(t, d.WithinRateLimit("BTC"))
}

// TestSeedFromHistory restores the window across restarts
func TestSeedFromHistory(t *testing.T) {
	d := NewDCAEngine(config.Default())
	now := time.Now()
	d.now = fixedClock(now)

	ts := float64(now.Unix())
	d.SeedFromHistory("btc", []float64{ts - 3600, ts - 1800}, 0)
	assert.False(t, d.WithinRateLimit("BTC"))

	d2 := NewDCAEngine(config.Default())
	d2.now = fixedClock(now)
	d2.SeedFromHistory("BTC", []float64{ts - 3600, ts - 1800}, ts-900)
	assert.True(t, d2.WithinRateLimit("BTC"))
}

// TestDCAAmount multiplies current position value
func TestDCAAmount(t *testing.T) {
	d := NewDCAEngine(config.Default()) // multiplier 2.0
	pos := testPosition("BTC", 100, 0.5, 0)
	assert.InDelta(t, 0.5*90*2.0, d.DCAAmount(pos, 90), 1e-9)
}
