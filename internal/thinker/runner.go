// Package thinker runs the continuous signal generation loop: it loads
// trained pattern memories, matches the latest candle against them, and
// writes per-coin signal files for the trader to consume.
package thinker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/powertrader/powertrader/internal/config"
	"github.com/powertrader/powertrader/internal/events"
	"github.com/powertrader/powertrader/internal/exchange"
	"github.com/powertrader/powertrader/internal/logger"
	"github.com/powertrader/powertrader/internal/monitoring"
	"github.com/powertrader/powertrader/internal/paths"
	"github.com/powertrader/powertrader/internal/pattern"
	"github.com/powertrader/powertrader/internal/signal"
	"github.com/powertrader/powertrader/internal/store"
	"github.com/powertrader/powertrader/internal/trainer"
	"github.com/powertrader/powertrader/pkg/types"
)

// LoopInterval is the pause between signal generation passes.
const LoopInterval = 150 * time.Millisecond

// TrainingStaleAfter is how old the last completed training run may be
// before signals stop being generated.
const TrainingStaleAfter = 14 * 24 * time.Hour

// Runner is the thinker's main loop. The coin list hot-reloads from
// gui_settings.json between passes.
type Runner struct {
	BaseDir string
	Market  exchange.MarketDataClient
	Log     *logger.Logger
	Bus     *events.Bus
	Health  *monitoring.HealthChecker

	coins         []string
	coinPaths     map[string]paths.CoinPaths
	settingsMtime time.Time

	now func() time.Time
}

// NewRunner builds a thinker over the given market feed and settings
// snapshot.
func NewRunner(baseDir string, market exchange.MarketDataClient, cfg config.Settings, log *logger.Logger, bus *events.Bus, health *monitoring.HealthChecker) *Runner {
	return &Runner{
		BaseDir:   baseDir,
		Market:    market,
		Log:       log,
		Bus:       bus,
		Health:    health,
		coins:     append([]string(nil), cfg.Coins...),
		coinPaths: paths.BuildCoinPaths(baseDir, cfg.Coins, false),
		now:       time.Now,
	}
}

// Run loops until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.Log.Info("Thinker started for %d coins", len(r.coins))

	ticker := time.NewTicker(LoopInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Log.Info("Thinker stopped")
			return ctx.Err()
		case <-ticker.C:
			r.syncCoinsFromSettings()
			r.Step(ctx)
		}
	}
}

// Step runs one pass over every coin and returns the generated
// signals. A coin that is untrained, stale, or without market data
// produces no entry; per-coin failures log and continue.
func (r *Runner) Step(ctx context.Context) map[string]types.Signal {
	signals := make(map[string]types.Signal)

	for _, coin := range r.coins {
		cp, ok := r.coinPaths[coin]
		if !ok {
			continue
		}
		sig, err := r.stepCoin(ctx, coin, cp)
		if err != nil {
			r.Log.Error("Signal generation failed for %s: %v", coin, err)
			r.Health.RecordError("thinker", err.Error())
			continue
		}
		if sig != nil {
			signals[coin] = *sig
			r.writeSignalFiles(cp, *sig)
			r.Bus.Publish(events.SignalUpdated{Coin: coin, Signal: *sig, Timestamp: sig.Timestamp})
			monitoring.UpdateSignal(coin, sig.LongLevel, sig.ShortLevel, sig.LongPM, sig.ShortPM)
		}
	}

	r.Health.Heartbeat("thinker")
	return signals
}

// stepCoin generates one coin's signal. A nil signal with nil error
// means the coin is skipped this pass; signal files for a trained coin
// are never deleted, only a stale or untrained coin gets zeroed.
func (r *Runner) stepCoin(ctx context.Context, coin string, cp paths.CoinPaths) (*types.Signal, error) {
	if !r.isTrained(cp) {
		r.writeZeroSignals(cp)
		return nil, nil
	}

	memories := r.loadMemories(cp)
	if len(memories) == 0 {
		r.writeZeroSignals(cp)
		return nil, nil
	}

	currentPrice, err := r.Market.GetCurrentPrice(ctx, coin)
	if err != nil {
		return nil, fmt.Errorf("price for %s: %w", coin, err)
	}
	if currentPrice <= 0 {
		return nil, nil
	}

	if err := store.WriteSignal(cp.CurrentPrice(), currentPrice); err != nil {
		r.Log.Error("Writing current price for %s: %v", coin, err)
	}
	monitoring.UpdatePrice(coin, currentPrice)

	candles, err := r.Market.GetKlines(ctx, coin, "1hour", 2, time.Time{}, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("candles for %s: %w", coin, err)
	}
	if len(candles) == 0 {
		return nil, nil
	}

	latest := candles[len(candles)-1]
	sig := signal.Generate(coin, currentPrice, latest.Open, latest.Close, memories, float64(r.now().UnixNano())/1e9)
	return &sig, nil
}

// loadMemories reads every timeframe memory that exists and parses
// non-empty.
func (r *Runner) loadMemories(cp paths.CoinPaths) map[string]*pattern.Memory {
	memories := make(map[string]*pattern.Memory)
	for _, tf := range pattern.Timeframes {
		if _, err := os.Stat(cp.MemoryFile(tf)); err != nil {
			continue
		}
		mem := trainer.LoadMemory(cp, tf)
		if !mem.IsEmpty() {
			memories[tf] = mem
		}
	}
	return memories
}

// isTrained gates signal generation on training freshness. Without a
// last-training-time file the existence of any memory file counts.
func (r *Runner) isTrained(cp paths.CoinPaths) bool {
	timePath := filepath.Join(cp.Base, paths.LastTrainingTimeFilename)
	raw := strings.TrimSpace(store.ReadText(timePath, ""))
	if raw == "" {
		for _, tf := range pattern.Timeframes {
			if _, err := os.Stat(cp.MemoryFile(tf)); err == nil {
				return true
			}
		}
		return false
	}
	lastTrain, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return false
	}
	age := r.now().Sub(time.Unix(int64(lastTrain), 0))
	return age < TrainingStaleAfter
}

func (r *Runner) writeSignalFiles(cp paths.CoinPaths, sig types.Signal) {
	store.WriteIntSignal(cp.SignalLong(), sig.LongLevel)
	store.WriteIntSignal(cp.SignalShort(), sig.ShortLevel)
	store.WriteSignal(cp.ProfitMarginLong(), sig.LongPM)
	store.WriteSignal(cp.ProfitMarginShort(), sig.ShortPM)

	if len(sig.LongBounds) > 0 {
		store.WriteText(cp.BoundsLow(), formatBounds(sig.LongBounds))
	}
	if len(sig.ShortBounds) > 0 {
		store.WriteText(cp.BoundsHigh(), formatBounds(sig.ShortBounds))
	}
}

// writeZeroSignals neutralizes an untrained or stale coin so the
// trader never acts on leftover levels.
func (r *Runner) writeZeroSignals(cp paths.CoinPaths) {
	store.WriteIntSignal(cp.SignalLong(), 0)
	store.WriteIntSignal(cp.SignalShort(), 0)
}

func formatBounds(bounds []float64) string {
	parts := make([]string, len(bounds))
	for i, b := range bounds {
		parts[i] = strconv.FormatFloat(b, 'f', 8, 64)
	}
	return strings.Join(parts, " ")
}

// syncCoinsFromSettings hot-reloads the coin list when
// gui_settings.json changes on disk.
func (r *Runner) syncCoinsFromSettings() {
	settingsPath := filepath.Join(r.BaseDir, paths.SettingsFilename)
	info, err := os.Stat(settingsPath)
	if err != nil {
		return
	}
	if !info.ModTime().After(r.settingsMtime) {
		return
	}
	r.settingsMtime = info.ModTime()

	newCoins := config.Load(settingsPath).Coins
	if equalStrings(newCoins, r.coins) {
		return
	}

	for _, c := range diffStrings(newCoins, r.coins) {
		r.Log.Info("Coin added: %s", c)
	}
	for _, c := range diffStrings(r.coins, newCoins) {
		r.Log.Info("Coin removed: %s", c)
	}

	r.coins = newCoins
	r.coinPaths = paths.BuildCoinPaths(r.BaseDir, newCoins, true)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// diffStrings returns the elements of a missing from b.
func diffStrings(a, b []string) []string {
	seen := make(map[string]bool, len(b))
	for _, s := range b {
		seen[s] = true
	}
	var out []string
	for _, s := range a {
		if !seen[s] {
			out = append(out, s)
		}
	}
	return out
}
