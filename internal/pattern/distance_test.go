package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDistance_Symmetric verifies the percentage distance metric
func TestDistance_Symmetric(t *testing.T) {
	assert.Equal(t, Distance(1.0, 2.0), Distance(2.0, 1.0))
	// |1-2| / 1.5 * 100
	assert.InDelta(t, 66.6667, Distance(1.0, 2.0), 0.001)
	assert.Equal(t, 0.0, Distance(5.0, 5.0))
}

// TestDistance_ZeroCases verifies the zero-denominator conventions
func TestDistance_ZeroCases(t *testing.T) {
	assert.Equal(t, 0.0, Distance(0, 0))
	// Mean of 1 and -1 is zero
	assert.Equal(t, 0.0, Distance(1.0, -1.0))
}

// TestMatchesWithin_PrefixOverlap matches on the overlapping prefix only
func TestMatchesWithin_PrefixOverlap(t *testing.T) {
	m := NewMemory()
	m.Patterns = [][]float64{{1.0, 99.0}, {1.0, 1.0}, {50.0, 1.0}}
	m.Threshold = 1.0

	// Single-value current pattern compares only the first element
	matches := MatchesWithin([]float64{1.0}, m, 1.0)
	assert.Equal(t, []int{0, 1}, matches)
}

// TestMatchesWithin_Empty returns nothing for empty inputs
func TestMatchesWithin_Empty(t *testing.T) {
	assert.Nil(t, MatchesWithin([]float64{1.0}, NewMemory(), 1.0))
	m := NewMemory()
	m.Patterns = [][]float64{{1.0}}
	assert.Nil(t, MatchesWithin(nil, m, 1.0))
}

// TestPredictLevels_WeightedMean verifies weighting and zero-weight exclusion
func TestPredictLevels_WeightedMean(t *testing.T) {
	m := NewMemory()
	m.Patterns = [][]float64{{1.0, 2.0}, {1.0, 4.0}}
	m.HighDiffs = []float64{0.02, 0.04}
	m.LowDiffs = []float64{-0.01, -0.03}
	m.Weights = []float64{1, 1}
	m.WeightsHigh = []float64{1, 0} // second excluded
	m.WeightsLow = []float64{1, 1}

	h, l, c := PredictLevels([]int{0, 1}, m)
	require.InDelta(t, 0.02, h, 1e-9)
	assert.InDelta(t, -0.02, l, 1e-9)
	// Close move averages the last pattern values
	assert.InDelta(t, 3.0, c, 1e-9)
}

// TestPredictLevels_NoMatches returns zeros
func TestPredictLevels_NoMatches(t *testing.T) {
	h, l, c := PredictLevels(nil, NewMemory())
	assert.Equal(t, 0.0, h)
	assert.Equal(t, 0.0, l)
	assert.Equal(t, 0.0, c)
}
