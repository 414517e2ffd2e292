// Package signal turns trained pattern memories and a live candle into
// a trading signal: per-timeframe predicted high/low boundaries and a
// 0-7 breakout count on each side.
package signal

import (
	"math"
	"sort"

	"github.com/powertrader/powertrader/internal/pattern"
	"github.com/powertrader/powertrader/pkg/types"
)

const (
	// SentinelHigh and SentinelLow mark timeframes with no usable
	// prediction so their bounds can never be broken.
	SentinelHigh = 99_999_999_999_999_999.0
	SentinelLow  = 0.01

	// DistanceOffsetPct widens raw predicted prices into trading
	// bounds.
	DistanceOffsetPct = 0.5

	// BoundGapIncrement is the minimum percentage gap between adjacent
	// sorted bounds; the threshold grows by this amount per rank.
	BoundGapIncrement = 0.25

	// BoundMicroAdjust is the fractional nudge applied to push a
	// crowded bound away from its neighbour.
	BoundMicroAdjust = 0.0005

	// MinProfitMargin floors the aggregated profit margin percentage.
	MinProfitMargin = 0.25
)

// PredictedPrices converts prediction diffs (fractions of close) to
// absolute price levels.
func PredictedPrices(closePrice, highDiff, lowDiff float64) (high, low float64) {
	return closePrice + closePrice*highDiff, closePrice + closePrice*lowDiff
}

// ApplyDistanceOffset widens active predictions into trading bounds and
// replaces inactive timeframes with sentinels.
func ApplyDistanceOffset(highPrices, lowPrices []float64, actives []bool, distancePct float64) (highBounds, lowBounds []float64) {
	frac := distancePct / 100
	highBounds = make([]float64, len(highPrices))
	lowBounds = make([]float64, len(highPrices))
	for i := range highPrices {
		if actives[i] {
			highBounds[i] = highPrices[i] + highPrices[i]*frac
			lowBounds[i] = lowPrices[i] - lowPrices[i]*frac
		} else {
			highBounds[i] = SentinelHigh
			lowBounds[i] = SentinelLow
		}
	}
	return highBounds, lowBounds
}

// SortAndMergeBounds spreads crowded bounds apart so each of the seven
// levels stays meaningfully distinct, then restores timeframe order.
// Low bounds are ranked descending (nearest support first), high
// bounds ascending.
func SortAndMergeBounds(highBounds, lowBounds []float64) (mergedHigh, mergedLow []float64) {
	n := len(highBounds)
	if n <= 1 {
		return append([]float64(nil), highBounds...), append([]float64(nil), lowBounds...)
	}

	lowOrder := sortIndices(lowBounds, true)
	highOrder := sortIndices(highBounds, false)

	sortedLow := make([]float64, n)
	sortedHigh := make([]float64, n)
	for rank, origIdx := range lowOrder {
		sortedLow[rank] = lowBounds[origIdx]
	}
	for rank, origIdx := range highOrder {
		sortedHigh[rank] = highBounds[origIdx]
	}

	mergeAdjacent(sortedLow, -1)
	mergeAdjacent(sortedHigh, +1)

	mergedLow = make([]float64, n)
	mergedHigh = make([]float64, n)
	for rank, origIdx := range lowOrder {
		mergedLow[origIdx] = sortedLow[rank]
	}
	for rank, origIdx := range highOrder {
		mergedHigh[origIdx] = sortedHigh[rank]
	}
	return mergedHigh, mergedLow
}

// sortIndices returns the original indices ordered by value. Ties keep
// timeframe order.
func sortIndices(vals []float64, descending bool) []int {
	order := make([]int, len(vals))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		if descending {
			return vals[order[a]] > vals[order[b]]
		}
		return vals[order[a]] < vals[order[b]]
	})
	return order
}

// mergeAdjacent pushes apart adjacent sorted values closer than the
// growing gap threshold. direction is +1 for ascending (high bounds),
// -1 for descending (low bounds). Values are modified in place.
func mergeAdjacent(sorted []float64, direction float64) {
	gapMod := 0.0
	i := 0
	for i < len(sorted)-1 {
		a, b := sorted[i], sorted[i+1]

		if isSentinel(a) || isSentinel(b) {
			i++
			gapMod += BoundGapIncrement
			continue
		}

		avg := (a + b) / 2
		if avg == 0 {
			i++
			gapMod += BoundGapIncrement
			continue
		}

		pctDiff := math.Abs(a-b) / math.Abs(avg) * 100
		threshold := BoundGapIncrement + gapMod

		outOfOrder := (direction > 0 && b < a) || (direction < 0 && b > a)
		if pctDiff < threshold || outOfOrder {
			// Nudge the second value away and recheck the same pair.
			sorted[i+1] = b + b*BoundMicroAdjust*direction
			continue
		}

		i++
		gapMod += BoundGapIncrement
	}
}

func isSentinel(v float64) bool {
	return v == SentinelHigh || v == SentinelLow
}

// CountSignalLevels counts how many bounds the current price has broken
// through on each side. tfSides holds "long"/"short"/"none" per
// timeframe; margins is the percentage distance from the current price
// to the raw prediction on the broken side, zero elsewhere. Timeframes
// whose high and low predictions coincide are inactive and never count.
func CountSignalLevels(currentPrice float64, highBounds, lowBounds, highPredictions, lowPredictions []float64) (longCount, shortCount int, tfSides []string, margins []float64) {
	tfSides = make([]string, len(highBounds))
	margins = make([]float64, len(highBounds))

	for i := range highBounds {
		hPred, lPred := highPredictions[i], lowPredictions[i]
		if hPred == lPred {
			tfSides[i] = "none"
			continue
		}

		switch {
		case currentPrice > highBounds[i]:
			tfSides[i] = "short"
			shortCount++
			if currentPrice != 0 {
				margins[i] = (hPred - currentPrice) / math.Abs(currentPrice) * 100
			}
		case currentPrice < lowBounds[i]:
			tfSides[i] = "long"
			longCount++
			if currentPrice != 0 {
				margins[i] = (lPred - currentPrice) / math.Abs(currentPrice) * 100
			}
		default:
			tfSides[i] = "none"
		}
	}
	return longCount, shortCount, tfSides, margins
}

// AggregateProfitMargin averages the non-zero margins and floors the
// absolute result at MinProfitMargin.
func AggregateProfitMargin(margins []float64) float64 {
	sum, count := 0.0, 0
	for _, m := range margins {
		if m != 0 {
			sum += m
			count++
		}
	}
	if count == 0 {
		return MinProfitMargin
	}
	return math.Max(math.Abs(sum/float64(count)), MinProfitMargin)
}

// Generate runs the full pipeline for one coin: match the latest
// candle move against every timeframe memory, widen predictions into
// bounds, de-crowd them, and count breakouts on each side.
func Generate(coin string, currentPrice, candleOpen, candleClose float64, memories map[string]*pattern.Memory, timestamp float64) types.Signal {
	currentPct := 0.0
	if candleOpen != 0 {
		currentPct = 100 * (candleClose - candleOpen) / candleOpen
	}
	currentPattern := []float64{currentPct}

	n := len(pattern.Timeframes)
	highPredictions := make([]float64, 0, n)
	lowPredictions := make([]float64, 0, n)
	actives := make([]bool, 0, n)

	for _, tf := range pattern.Timeframes {
		mem := memories[tf]
		if mem == nil || mem.IsEmpty() {
			highPredictions = append(highPredictions, candleClose)
			lowPredictions = append(lowPredictions, candleClose)
			actives = append(actives, false)
			continue
		}

		matches := pattern.FindMatches(currentPattern, mem)
		if len(matches) == 0 {
			highPredictions = append(highPredictions, candleClose)
			lowPredictions = append(lowPredictions, candleClose)
			actives = append(actives, false)
			continue
		}

		hDiff, lDiff, _ := pattern.PredictLevels(matches, mem)
		hPrice, lPrice := PredictedPrices(candleClose, hDiff, lDiff)
		highPredictions = append(highPredictions, hPrice)
		lowPredictions = append(lowPredictions, lPrice)
		actives = append(actives, true)
	}

	highBounds, lowBounds := ApplyDistanceOffset(highPredictions, lowPredictions, actives, DistanceOffsetPct)
	highBounds, lowBounds = SortAndMergeBounds(highBounds, lowBounds)

	longLevel, shortLevel, tfSides, margins := CountSignalLevels(currentPrice, highBounds, lowBounds, highPredictions, lowPredictions)

	longPM := AggregateProfitMargin(sideMargins(margins, tfSides, "long"))
	shortPM := AggregateProfitMargin(sideMargins(margins, tfSides, "short"))

	return types.Signal{
		Coin:        coin,
		LongLevel:   longLevel,
		ShortLevel:  shortLevel,
		LongBounds:  lowBounds,
		ShortBounds: highBounds,
		LongPM:      longPM,
		ShortPM:     shortPM,
		Timestamp:   timestamp,
	}
}

func sideMargins(margins []float64, tfSides []string, side string) []float64 {
	var out []float64
	for i, s := range tfSides {
		if s == side {
			out = append(out, margins[i])
		}
	}
	return out
}
