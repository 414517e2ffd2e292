package pattern

import "math"

// Distance is the symmetric percentage distance between two pattern
// values:
//
//	|a-b| / |(a+b)/2| * 100
//
// It returns 0 when both values are zero or when the mean is zero.
func Distance(a, b float64) float64 {
	if a == 0 && b == 0 {
		return 0
	}
	avg := (a + b) / 2
	if avg == 0 {
		return 0
	}
	return math.Abs(a-b) / math.Abs(avg) * 100
}

// MatchesWithin returns the indices of stored patterns whose average
// Distance over the overlapping prefix with current is at or below
// threshold.
func MatchesWithin(current []float64, m *Memory, threshold float64) []int {
	if m.IsEmpty() || len(current) == 0 {
		return nil
	}
	var matches []int
	for idx, stored := range m.Patterns {
		n := len(current)
		if len(stored) < n {
			n = len(stored)
		}
		if n == 0 {
			continue
		}
		total := 0.0
		for j := 0; j < n; j++ {
			total += Distance(current[j], stored[j])
		}
		if total/float64(n) <= threshold {
			matches = append(matches, idx)
		}
	}
	return matches
}

// FindMatches matches against the memory's own threshold.
func FindMatches(current []float64, m *Memory) []int {
	return MatchesWithin(current, m, m.Threshold)
}

// PredictLevels computes the weighted mean predicted high diff, low
// diff and close move over the matched patterns. Zero-weight entries
// are excluded from their channel's mean. High and low diffs come out
// as fractions; the close move is in percent, like the stored pattern
// values.
func PredictLevels(matches []int, m *Memory) (highDiff, lowDiff, closeMove float64) {
	if len(matches) == 0 {
		return 0, 0, 0
	}

	var highs, lows, closes []float64
	for _, idx := range matches {
		if w := weightAt(m.WeightsHigh, idx); w != 0 {
			highs = append(highs, diffAt(m.HighDiffs, idx)*w)
		}
		if w := weightAt(m.WeightsLow, idx); w != 0 {
			lows = append(lows, diffAt(m.LowDiffs, idx)*w)
		}
		if w := weightAt(m.Weights, idx); w != 0 {
			var move float64
			if idx < len(m.Patterns) && len(m.Patterns[idx]) > 0 {
				move = m.Patterns[idx][len(m.Patterns[idx])-1]
			}
			closes = append(closes, move*w)
		}
	}
	return mean(highs), mean(lows), mean(closes)
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
