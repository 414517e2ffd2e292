// Package trainer builds and refines pattern memories from historical
// candles: fresh pattern construction, online weight adjustment with a
// self-tuning match threshold, and the resumable multi-coin runner.
package trainer

import (
	"github.com/powertrader/powertrader/internal/pattern"
	"github.com/powertrader/powertrader/pkg/types"
)

// weightTolerance is the accuracy band around a prediction inside
// which no weight nudge happens.
const weightTolerance = 0.1

// NormalizeCandles converts candles to percentage changes from open.
// The three returned slices are parallel, all in percent.
func NormalizeCandles(candles []types.Candle) (closePcts, highPcts, lowPcts []float64) {
	closePcts = make([]float64, len(candles))
	highPcts = make([]float64, len(candles))
	lowPcts = make([]float64, len(candles))

	for i, c := range candles {
		if c.Open == 0 {
			continue
		}
		closePcts[i] = 100 * (c.Close - c.Open) / c.Open
		highPcts[i] = 100 * (c.High - c.Open) / c.Open
		lowPcts[i] = 100 * (c.Low - c.Open) / c.Open
	}
	return closePcts, highPcts, lowPcts
}

// BuildPatterns creates a fresh memory: every window of PatternLength
// close changes becomes a pattern, paired with the high/low deviation
// of the candle right after it. All weights start at 1.0.
func BuildPatterns(closePcts, highPcts, lowPcts []float64) *pattern.Memory {
	n := len(closePcts)
	m := pattern.NewMemory()

	for i := 0; i < n-pattern.PatternLength; i++ {
		targetIdx := i + pattern.PatternLength
		if targetIdx >= n {
			break
		}
		pat := append([]float64(nil), closePcts[i:i+pattern.PatternLength]...)
		m.Patterns = append(m.Patterns, pat)
		// Targets are stored as fractions to match what the signal
		// engine multiplies prices by.
		m.HighDiffs = append(m.HighDiffs, highPcts[targetIdx]/100)
		m.LowDiffs = append(m.LowDiffs, lowPcts[targetIdx]/100)
	}

	size := m.Size()
	m.Weights = ones(size)
	m.WeightsHigh = ones(size)
	m.WeightsLow = ones(size)
	m.Threshold = pattern.InitialThreshold
	return m
}

// ProgressFunc is called periodically during weight adjustment. A
// non-nil error return unwinds the pass; the caller sees that error.
type ProgressFunc func(pos, total int) error

// AdjustWeights runs one online pass over the candle history:
//
//  1. build the current pattern at each position
//  2. find stored patterns within the threshold
//  3. self-tune the threshold toward ~20 matches per position
//  4. compare the weighted prediction against the realized candle
//  5. nudge the responsible weights by ±0.25 when the prediction
//     missed the tolerance band
//
// The memory is modified in place and returned.
func AdjustWeights(m *pattern.Memory, closePcts, highPcts, lowPcts []float64, onProgress ProgressFunc) (*pattern.Memory, error) {
	n := len(closePcts)
	if n < pattern.PatternLength+1 || m.IsEmpty() {
		return m, nil
	}

	totalPositions := n - pattern.PatternLength - 1
	threshold := m.Threshold

	for pos := 0; pos < totalPositions; pos++ {
		current := closePcts[pos : pos+pattern.PatternLength]
		matches := pattern.MatchesWithin(current, m, threshold)

		step := pattern.ThresholdStepLarge
		if threshold < 0.1 {
			step = pattern.ThresholdStepSmall
		}
		if len(matches) > pattern.MatchTarget {
			threshold -= step
			if threshold < 0 {
				threshold = 0
			}
		} else {
			threshold += step
			if threshold > pattern.MaxThreshold {
				threshold = pattern.MaxThreshold
			}
		}

		if len(matches) == 0 {
			if err := reportProgress(onProgress, pos, totalPositions); err != nil {
				m.Threshold = threshold
				return m, err
			}
			continue
		}

		hPred, lPred, cPred := pattern.PredictLevels(matches, m)

		targetIdx := pos + pattern.PatternLength
		actualClose := closePcts[targetIdx]
		actualHigh := highPcts[targetIdx] / 100
		actualLow := lowPcts[targetIdx] / 100

		for _, idx := range matches {
			adjustHighWeight(m, idx, hPred, actualHigh)
			adjustLowWeight(m, idx, lPred, actualLow)
			adjustCloseWeight(m, idx, cPred, actualClose)
		}

		if err := reportProgress(onProgress, pos, totalPositions); err != nil {
			m.Threshold = threshold
			return m, err
		}
	}

	m.Threshold = threshold
	return m, nil
}

func reportProgress(onProgress ProgressFunc, pos, total int) error {
	if onProgress == nil || pos%200 != 0 {
		return nil
	}
	return onProgress(pos, total)
}

// adjustHighWeight nudges the high-prediction weight: up when the
// realized high overshot the prediction band, down when it fell short.
func adjustHighWeight(m *pattern.Memory, idx int, pred, actual float64) {
	if idx >= len(m.WeightsHigh) || pred == 0 {
		return
	}
	band := abs(pred * weightTolerance)
	w := m.WeightsHigh[idx]
	switch {
	case actual > pred+band:
		w = min(pattern.WeightMax, w+pattern.WeightAdjustStep)
	case actual < pred-band:
		w = max(pattern.WeightMin, w-pattern.WeightAdjustStep)
	}
	m.WeightsHigh[idx] = w
}

// adjustLowWeight mirrors adjustHighWeight: a realized low deeper than
// predicted means the weight was too timid.
func adjustLowWeight(m *pattern.Memory, idx int, pred, actual float64) {
	if idx >= len(m.WeightsLow) || pred == 0 {
		return
	}
	band := abs(pred * weightTolerance)
	w := m.WeightsLow[idx]
	switch {
	case actual < pred-band:
		w = min(pattern.WeightMax, w+pattern.WeightAdjustStep)
	case actual > pred+band:
		w = max(pattern.WeightMin, w-pattern.WeightAdjustStep)
	}
	m.WeightsLow[idx] = w
}

// adjustCloseWeight may push the close weight negative, inverting an
// anti-correlated pattern.
func adjustCloseWeight(m *pattern.Memory, idx int, pred, actual float64) {
	if idx >= len(m.Weights) || pred == 0 {
		return
	}
	band := abs(pred * weightTolerance)
	w := m.Weights[idx]
	switch {
	case actual > pred+band:
		w = min(pattern.WeightMax, w+pattern.WeightAdjustStep)
	case actual < pred-band:
		w = max(pattern.WeightMinClose, w-pattern.WeightAdjustStep)
	}
	m.Weights[idx] = w
}

func ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1.0
	}
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
