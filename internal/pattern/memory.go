// Package pattern holds the trained pattern-memory model shared by the
// trainer and the signal engine: the on-disk text codec, the symmetric
// percentage distance metric and threshold matching.
package pattern

import "fmt"

// Tuning constants for matching and weight adjustment.
const (
	// PatternLength is the number of consecutive candle-body values
	// forming one stored pattern.
	PatternLength = 2

	InitialThreshold = 1.0
	MaxThreshold     = 100.0

	// Threshold self-tuning steps. The small step applies below 0.1.
	ThresholdStepSmall = 0.001
	ThresholdStepLarge = 0.01

	// MatchTarget is the match count above which the threshold is
	// tightened instead of widened.
	MatchTarget = 20

	WeightAdjustStep = 0.25
	WeightMax        = 2.0
	WeightMin        = 0.0
	// Close weights may go negative, inverting an anti-correlated
	// pattern instead of muting it.
	WeightMinClose = -2.0
)

// Memory is the trained pattern memory for one coin on one timeframe.
// The six slices are parallel: index i describes pattern i. Close-body
// values are stored in percent; HighDiffs and LowDiffs are fractions.
type Memory struct {
	Patterns    [][]float64
	HighDiffs   []float64
	LowDiffs    []float64
	Weights     []float64 // close-prediction reliability, [-2, 2]
	WeightsHigh []float64 // high-prediction reliability, [0, 2]
	WeightsLow  []float64 // low-prediction reliability, [0, 2]
	Threshold   float64
}

// NewMemory returns an empty memory with the default threshold.
func NewMemory() *Memory {
	return &Memory{Threshold: InitialThreshold}
}

func (m *Memory) Size() int     { return len(m.Patterns) }
func (m *Memory) IsEmpty() bool { return len(m.Patterns) == 0 }

// Validate reports parallel-slice length mismatches and a negative
// threshold. An empty slice for a weight channel is allowed (defaults
// to weight 1.0 at read time).
func (m *Memory) Validate() []string {
	var errs []string
	n := len(m.Patterns)
	check := func(name string, l int) {
		if l != n {
			errs = append(errs, fmt.Sprintf("%s length (%d) != patterns length (%d)", name, l, n))
		}
	}
	check("high_diffs", len(m.HighDiffs))
	check("low_diffs", len(m.LowDiffs))
	if len(m.Weights) > 0 {
		check("weights", len(m.Weights))
	}
	if len(m.WeightsHigh) > 0 {
		check("weights_high", len(m.WeightsHigh))
	}
	if len(m.WeightsLow) > 0 {
		check("weights_low", len(m.WeightsLow))
	}
	if m.Threshold < 0 {
		errs = append(errs, fmt.Sprintf("threshold=%g must be >= 0", m.Threshold))
	}
	return errs
}

// weightAt returns the weight at idx, defaulting to 1.0 when the
// channel is shorter than the pattern list.
func weightAt(ws []float64, idx int) float64 {
	if idx < len(ws) {
		return ws[idx]
	}
	return 1.0
}

// diffAt returns the diff at idx, defaulting to 0.
func diffAt(ds []float64, idx int) float64 {
	if idx < len(ds) {
		return ds[idx]
	}
	return 0
}
