package trader

import (
	"github.com/powertrader/powertrader/internal/config"
	"github.com/powertrader/powertrader/pkg/types"
)

// TrailingEngine implements the trailing profit-margin exit: once
// price first reaches the profit-margin start line, a trailing line
// tracks the peak and an exit fires on the cross back below. State
// lives on the Position so it survives alongside the holding.
type TrailingEngine struct {
	cfg config.Settings
}

// NewTrailingEngine builds a trailing engine over a settings snapshot.
func NewTrailingEngine(cfg config.Settings) *TrailingEngine {
	return &TrailingEngine{cfg: cfg}
}

// PMStartLine returns the activation price: average cost plus the
// profit-margin start percentage, which drops once DCA has happened.
func (t *TrailingEngine) PMStartLine(pos *types.Position) float64 {
	avg := pos.AvgPrice()
	if avg <= 0 {
		return 0
	}
	pct := t.cfg.PMStartPctNoDCA
	if pos.HasDCA() {
		pct = t.cfg.PMStartPctWithDCA
	}
	return avg * (1 + pct/100)
}

// Update advances the trailing state machine one tick:
//
//  1. before activation the line tracks the PM start line
//  2. the first touch of the line activates trailing, peak = price
//  3. while active the line follows peak*(1-gap), floored at the
//     start line, and only ever moves up
//
// It also refreshes WasAboveLine for the next tick's exit check.
func (t *TrailingEngine) Update(pos *types.Position, currentPrice float64) {
	baseLine := t.PMStartLine(pos)

	if !pos.TrailingActive {
		pos.TrailingLine = baseLine
	} else if pos.TrailingLine < baseLine {
		pos.TrailingLine = baseLine
	}

	aboveNow := currentPrice >= pos.TrailingLine

	if !pos.TrailingActive && aboveNow {
		pos.TrailingActive = true
		pos.TrailingPeak = currentPrice
	}

	if pos.TrailingActive {
		if currentPrice > pos.TrailingPeak {
			pos.TrailingPeak = currentPrice
		}
		newLine := pos.TrailingPeak * (1 - t.cfg.TrailingGapPct/100)
		if newLine < baseLine {
			newLine = baseLine
		}
		if newLine > pos.TrailingLine {
			pos.TrailingLine = newLine
		}
	}

	pos.WasAboveLine = aboveNow
}

// ShouldExit reports a crossover exit: price was above the line on the
// previous tick and sits below it now. Call it BEFORE Update each
// tick; it reads WasAboveLine from the prior tick's Update.
func (t *TrailingEngine) ShouldExit(pos *types.Position, currentPrice float64) bool {
	if !pos.TrailingActive {
		return false
	}
	return pos.WasAboveLine && currentPrice < pos.TrailingLine
}

// DisplayInfo returns the hub-facing trailing fields for one position.
func (t *TrailingEngine) DisplayInfo(pos *types.Position, currentPrice float64) map[string]interface{} {
	dist := 0.0
	if pos.TrailingLine > 0 && currentPrice > 0 {
		dist = (currentPrice - pos.TrailingLine) / pos.TrailingLine * 100
	}
	return map[string]interface{}{
		"trail_active":      pos.TrailingActive,
		"trail_line":        pos.TrailingLine,
		"trail_peak":        pos.TrailingPeak,
		"dist_to_trail_pct": dist,
	}
}
