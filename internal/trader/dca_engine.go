package trader

import (
	"fmt"
	"strings"
	"time"

	"github.com/powertrader/powertrader/internal/config"
	"github.com/powertrader/powertrader/pkg/types"
)

// DCAWindow is the rolling window for the per-coin DCA rate limit.
const DCAWindow = 24 * time.Hour

// Neural DCA covers the first four stages only; stage + offset is the
// long level required to trigger it.
const (
	maxNeuralDCAStages = 4
	neuralLevelOffset  = 4
)

// DCAEngine decides when to average down and how much to buy. It never
// places orders; the runner handles execution.
type DCAEngine struct {
	cfg config.Settings

	buyTimestamps map[string][]float64
	lastSell      map[string]float64

	now func() time.Time
}

// NewDCAEngine builds a DCA engine over a settings snapshot.
func NewDCAEngine(cfg config.Settings) *DCAEngine {
	return &DCAEngine{
		cfg:           cfg,
		buyTimestamps: make(map[string][]float64),
		lastSell:      make(map[string]float64),
		now:           time.Now,
	}
}

// ShouldDCA decides whether to average down at the current price.
// The returned reason names the trigger, "hard_stage_N" or "neural_N".
// Hard thresholds take precedence over neural triggers; a rate-limited
// coin never fires.
func (d *DCAEngine) ShouldDCA(pos *types.Position, currentPrice float64, longSignal int) (bool, string) {
	if !d.WithinRateLimit(pos.Coin) {
		return false, ""
	}

	stage := pos.DCACount
	pnlPct := pos.PnlPct(currentPrice)

	hardHit := pnlPct <= d.hardThreshold(stage)

	neuralHit := false
	neuralReason := ""
	if stage < maxNeuralDCAStages {
		required := stage + neuralLevelOffset
		if pnlPct < 0 && longSignal >= required {
			neuralHit = true
			neuralReason = fmt.Sprintf("neural_%d", required)
		}
	}

	if hardHit {
		return true, fmt.Sprintf("hard_stage_%d", stage)
	}
	if neuralHit {
		return true, neuralReason
	}
	return false, ""
}

// DCAAmount returns the quote amount for the next DCA buy: current
// position value times the configured multiplier.
func (d *DCAEngine) DCAAmount(pos *types.Position, currentPrice float64) float64 {
	return pos.MarketValue(currentPrice) * d.cfg.DCAMultiplier
}

// WithinRateLimit reports whether a DCA buy is still allowed inside
// the rolling 24h window.
func (d *DCAEngine) WithinRateLimit(coin string) bool {
	return d.windowCount(coin) < d.cfg.MaxDCABuysPer24h
}

// RecordDCABuy records a DCA buy timestamp for rate limiting.
func (d *DCAEngine) RecordDCABuy(coin string, ts float64) {
	coin = strings.ToUpper(coin)
	d.buyTimestamps[coin] = append(d.buyTimestamps[coin], ts)
}

// RecordSell marks the trade boundary; buys before it stop counting
// toward the window.
func (d *DCAEngine) RecordSell(coin string, ts float64) {
	d.lastSell[strings.ToUpper(coin)] = ts
}

// SeedFromHistory restores the rate-limit window after a restart from
// the journaled trade history.
func (d *DCAEngine) SeedFromHistory(coin string, buyTimestamps []float64, lastSell float64) {
	coin = strings.ToUpper(coin)
	d.buyTimestamps[coin] = append([]float64(nil), buyTimestamps...)
	if lastSell > 0 {
		d.lastSell[coin] = lastSell
	}
}

// hardThreshold returns the loss threshold for a stage, repeating the
// deepest configured level past the end.
func (d *DCAEngine) hardThreshold(stage int) float64 {
	levels := d.cfg.DCALevels
	if len(levels) == 0 {
		return -50
	}
	idx := stage
	if idx > len(levels)-1 {
		idx = len(levels) - 1
	}
	return levels[idx]
}

// windowCount counts DCA buys inside the window and after the last
// sell, pruning expired entries as it goes.
func (d *DCAEngine) windowCount(coin string) int {
	coin = strings.ToUpper(coin)
	cutoff := float64(d.now().Unix()) - DCAWindow.Seconds()
	lastSell := d.lastSell[coin]

	var valid []float64
	for _, t := range d.buyTimestamps[coin] {
		if t > lastSell && t >= cutoff {
			valid = append(valid, t)
		}
	}
	d.buyTimestamps[coin] = valid
	return len(valid)
}
