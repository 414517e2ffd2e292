// Package trader executes the trading loop: entries on strong long
// signals, DCA buys on drawdowns, and trailing profit-margin exits.
// Decisions are split into small engines; the runner owns execution.
package trader

import (
	"github.com/powertrader/powertrader/internal/config"
	"github.com/powertrader/powertrader/pkg/types"
)

// EntryEngine decides when to open a new long position and how much to
// allocate.
type EntryEngine struct {
	cfg config.Settings
}

// NewEntryEngine builds an entry engine over a settings snapshot.
func NewEntryEngine(cfg config.Settings) *EntryEngine {
	return &EntryEngine{cfg: cfg}
}

// ShouldEnter reports whether a new long position should open: the
// long level must reach the configured start level with zero short
// pressure.
func (e *EntryEngine) ShouldEnter(sig types.Signal) bool {
	return sig.LongLevel >= e.cfg.TradeStartLevel && sig.ShortLevel == 0
}

// EntrySize returns the initial position size in quote currency.
func (e *EntryEngine) EntrySize(accountValue float64) float64 {
	return accountValue * e.cfg.StartAllocationPct
}
