package trainer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/powertrader/powertrader/internal/pattern"
	"github.com/powertrader/powertrader/pkg/types"
)

func candle(open, high, low, close float64) types.Candle {
	return types.Candle{Open: open, High: high, Low: low, Close: close}
}

// TestNormalizeCandles converts OHLC to percent moves from open
func TestNormalizeCandles(t *testing.T) {
	candles := []types.Candle{
		candle(100, 110, 95, 105),
		candle(0, 1, 1, 1), // zero open yields zeros
	}
	closes, highs, lows := NormalizeCandles(candles)

	assert.InDelta(t, 5.0, closes[0], 1e-9)
	assert.InDelta(t, 10.0, highs[0], 1e-9)
	assert.InDelta(t, -5.0, lows[0], 1e-9)
	assert.Equal(t, 0.0, closes[1])
	assert.Equal(t, 0.0, highs[1])
	assert.Equal(t, 0.0, lows[1])
}

// TestBuildPatterns pairs each close-change window with the next candle's extremes
func TestBuildPatterns(t *testing.T) {
	closes := []float64{1, 2, 3, 4}
	highs := []float64{5, 6, 7, 8}
	lows := []float64{-1, -2, -3, -4}

	m := BuildPatterns(closes, highs, lows)

	require.Equal(t, 2, m.Size())
	assert.Equal(t, []float64{1, 2}, m.Patterns[0])
	assert.Equal(t, []float64{2, 3}, m.Patterns[1])
	// Targets are the values at window end, stored as fractions
	assert.InDelta(t, 0.07, m.HighDiffs[0], 1e-9)
	assert.InDelta(t, -0.03, m.LowDiffs[0], 1e-9)
	assert.InDelta(t, 0.08, m.HighDiffs[1], 1e-9)
	assert.InDelta(t, -0.04, m.LowDiffs[1], 1e-9)

	assert.Equal(t, []float64{1, 1}, m.Weights)
	assert.Equal(t, []float64{1, 1}, m.WeightsHigh)
	assert.Equal(t, []float64{1, 1}, m.WeightsLow)
	assert.Equal(t, pattern.InitialThreshold, m.Threshold)
}

// TestAdjustWeights_ThresholdGrowsWithoutMatches verifies self-tuning upward
func TestAdjustWeights_ThresholdGrowsWithoutMatches(t *testing.T) {
	m := pattern.NewMemory()
	m.Patterns = [][]float64{{1000, 1000}}
	m.HighDiffs = []float64{0.01}
	m.LowDiffs = []float64{-0.01}
	m.Weights = []float64{1}
	m.WeightsHigh = []float64{1}
	m.WeightsLow = []float64{1}
	m.Threshold = 1.0

	closes := []float64{1, 1, 1, 1, 1, 1}
	m, err := AdjustWeights(m, closes, closes, closes, nil)
	require.NoError(t, err)
	// Three positions, no matches, step 0.01 each
	assert.InDelta(t, 1.03, m.Threshold, 1e-9)
}

// TestAdjustWeights_WeightClamps verifies the nudge bounds per channel
func TestAdjustWeights_WeightClamps(t *testing.T) {
	m := pattern.NewMemory()
	m.Patterns = [][]float64{{1, 1}}
	m.HighDiffs = []float64{0.05}
	m.LowDiffs = []float64{-0.05}
	m.Weights = []float64{1}
	m.WeightsHigh = []float64{2} // already at max
	m.WeightsLow = []float64{0}  // already at min
	m.Threshold = 100

	// Actual high far above prediction, actual low far above prediction
	closes := []float64{1, 1, 1}
	highs := []float64{50, 50, 50}
	lows := []float64{40, 40, 40}

	m, err := AdjustWeights(m, closes, highs, lows, nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, m.WeightsHigh[0], pattern.WeightMax)
	assert.GreaterOrEqual(t, m.WeightsLow[0], pattern.WeightMin)
	assert.GreaterOrEqual(t, m.Weights[0], pattern.WeightMinClose)
	assert.LessOrEqual(t, m.Weights[0], pattern.WeightMax)
}

// TestAdjustWeights_ProgressCallbackError unwinds the pass
func TestAdjustWeights_ProgressCallbackError(t *testing.T) {
	m := pattern.NewMemory()
	m.Patterns = [][]float64{{1, 1}}
	m.HighDiffs = []float64{0.01}
	m.LowDiffs = []float64{-0.01}
	m.Weights = []float64{1}
	m.WeightsHigh = []float64{1}
	m.WeightsLow = []float64{1}
	m.Threshold = 100

	closes := []float64{1, 1, 1, 1}
	_, err := AdjustWeights(m, closes, closes, closes, func(pos, total int) error {
		return ErrKilled
	})
	assert.ErrorIs(t, err, ErrKilled)
}
