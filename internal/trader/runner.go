package trader

import (
	"context"
	"path/filepath"
	"sort"
	"time"

	"github.com/powertrader/powertrader/internal/config"
	"github.com/powertrader/powertrader/internal/events"
	"github.com/powertrader/powertrader/internal/exchange"
	"github.com/powertrader/powertrader/internal/logger"
	"github.com/powertrader/powertrader/internal/monitoring"
	"github.com/powertrader/powertrader/internal/paths"
	"github.com/powertrader/powertrader/internal/store"
	"github.com/powertrader/powertrader/pkg/types"
)

const (
	// LoopInterval is the pause between trading passes.
	LoopInterval = 500 * time.Millisecond

	// PostTradeSleep is the cool-down after any fill before the next
	// pass, giving the venue time to settle balances.
	PostTradeSleep = 5 * time.Second
)

// Runner is the trader's main loop: it reads the thinker's signal
// files, reconciles positions against venue holdings, and executes
// entries, DCA buys and trailing exits.
type Runner struct {
	BaseDir string
	Client  exchange.TradingClient
	Entry   *EntryEngine
	DCA     *DCAEngine
	Trail   *TrailingEngine
	Log     *logger.Logger
	Bus     *events.Bus
	Health  *monitoring.HealthChecker

	cfg       config.Settings
	coinPaths map[string]paths.CoinPaths
	positions map[string]*types.Position

	now   func() time.Time
	sleep func(time.Duration)
}

// NewRunner wires the trader over a trading client and settings
// snapshot.
func NewRunner(baseDir string, client exchange.TradingClient, cfg config.Settings, log *logger.Logger, bus *events.Bus, health *monitoring.HealthChecker) *Runner {
	return &Runner{
		BaseDir:   baseDir,
		Client:    client,
		Entry:     NewEntryEngine(cfg),
		DCA:       NewDCAEngine(cfg),
		Trail:     NewTrailingEngine(cfg),
		Log:       log,
		Bus:       bus,
		Health:    health,
		cfg:       cfg,
		coinPaths: paths.BuildCoinPaths(baseDir, cfg.Coins, false),
		positions: make(map[string]*types.Position),
		now:       time.Now,
		sleep:     time.Sleep,
	}
}

// Run seeds restart state and loops until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.Log.Info("Trader started for %d coins", len(r.coinPaths))
	r.seedFromHistory()

	ticker := time.NewTicker(LoopInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Log.Info("Trader stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := r.Step(ctx); err != nil {
				r.Log.Error("Trade management error: %v", err)
				r.Health.RecordError("trader", err.Error())
				monitoring.RecordError("trader_step")
			}
			r.Health.Heartbeat("trader")
		}
	}
}

// Step runs one trading pass: prices, reconciliation, per-position
// management, then new entries.
func (r *Runner) Step(ctx context.Context) error {
	coins := make([]string, 0, len(r.coinPaths))
	for coin := range r.coinPaths {
		coins = append(coins, coin)
	}

	prices, err := r.Client.GetCurrentPrices(ctx, coins)
	if err != nil {
		return err
	}
	if len(prices) == 0 {
		return nil
	}

	r.syncPositions(ctx, prices)

	accountValue := r.accountValue(ctx, prices)
	monitoring.UpdateAccountValue(accountValue)

	for coin, pos := range r.positions {
		price, ok := prices[coin]
		if !ok || price <= 0 {
			continue
		}
		r.managePosition(ctx, coin, pos, price)
	}

	for coin, cp := range r.coinPaths {
		if _, held := r.positions[coin]; held {
			continue
		}
		price, ok := prices[coin]
		if !ok || price <= 0 {
			continue
		}
		r.checkEntry(ctx, coin, cp, price, accountValue)
	}

	r.writeStatus(prices, accountValue)
	return nil
}

// syncPositions reconciles tracked positions against venue holdings:
// holdings bought outside the bot are adopted at the current price,
// positions sold externally are dropped.
func (r *Runner) syncPositions(ctx context.Context, prices map[string]float64) {
	holdings, err := r.Client.GetHoldings(ctx)
	if err != nil {
		r.Log.Error("Failed to fetch holdings: %v", err)
		return
	}

	for coin, qty := range holdings {
		if _, tracked := r.coinPaths[coin]; !tracked {
			continue
		}
		if _, exists := r.positions[coin]; exists {
			continue
		}
		price := prices[coin]
		if price > 0 && qty > 0 {
			// Cost basis unknown for adopted holdings; the current
			// price is the only defensible anchor.
			r.positions[coin] = &types.Position{
				Coin:         coin,
				EntryPrice:   price,
				Quantity:     qty,
				CostBasisUSD: qty * price,
			}
			r.Log.Info("Detected existing position: %s qty=%.8f price=%.4f", coin, qty, price)
		}
	}

	for coin, pos := range r.positions {
		if qty, ok := holdings[coin]; !ok || qty <= 0 {
			r.Log.Info("Position closed externally: %s", coin)
			pos.ResetTrailing()
			delete(r.positions, coin)
		}
	}
}

// managePosition checks one held coin: trailing exit first (it reads
// the previous tick's line crossing), then the trailing update, then
// DCA.
func (r *Runner) managePosition(ctx context.Context, coin string, pos *types.Position, price float64) {
	cp, ok := r.coinPaths[coin]
	if !ok {
		return
	}
	sig := r.readSignals(coin, cp)

	if r.Trail.ShouldExit(pos, price) {
		r.executeExit(ctx, coin, pos, price)
		return
	}

	r.Trail.Update(pos, price)

	if shouldBuy, reason := r.DCA.ShouldDCA(pos, price, sig.LongLevel); shouldBuy {
		amount := r.DCA.DCAAmount(pos, price)
		r.executeDCA(ctx, coin, pos, price, amount, reason)
	}
}

func (r *Runner) checkEntry(ctx context.Context, coin string, cp paths.CoinPaths, price, accountValue float64) {
	sig := r.readSignals(coin, cp)
	if !r.Entry.ShouldEnter(sig) {
		return
	}

	size := r.Entry.EntrySize(accountValue)
	if size <= 0 {
		return
	}
	r.Log.Info("Entry signal for %s: LONG=%d SHORT=%d, size=$%.2f", coin, sig.LongLevel, sig.ShortLevel, size)

	fill, err := r.Client.MarketBuy(ctx, coin, size)
	if err != nil {
		r.Log.Error("Entry buy failed for %s: %v", coin, err)
		r.Health.RecordError("trader", err.Error())
		return
	}

	pos := &types.Position{
		Coin:         coin,
		EntryPrice:   fill.Price,
		Quantity:     fill.Quantity,
		CostBasisUSD: fill.Value,
	}
	r.positions[coin] = pos

	trade := r.fillToTrade(coin, types.SideBuy, "entry", fill)
	r.recordTrade(trade)
	r.Bus.Publish(events.PositionOpened{Coin: coin, Position: *pos, Timestamp: trade.Timestamp})
	r.Log.LogTradeExecution(coin, types.SideBuy, "entry", fill.OrderID, fill.Quantity, fill.Price, fill.Value)
	r.sleep(PostTradeSleep)
}

func (r *Runner) executeExit(ctx context.Context, coin string, pos *types.Position, price float64) {
	pnlPct := pos.PnlPct(price)
	r.Log.Info("Trailing exit for %s at %.4f (PnL=%.2f%%)", coin, price, pnlPct)

	fill, err := r.Client.MarketSell(ctx, coin, pos.Quantity)
	if err != nil {
		r.Log.Error("Exit sell failed for %s: %v", coin, err)
		r.Health.RecordError("trader", err.Error())
		return
	}

	trade := r.fillToTrade(coin, types.SideSell, "trailing_exit", fill)
	trade.PnlPct = &pnlPct
	r.recordTrade(trade)

	pos.ResetTrailing()
	r.DCA.RecordSell(coin, trade.Timestamp)
	delete(r.positions, coin)

	r.Bus.Publish(events.PositionClosed{Coin: coin, PnlPct: pnlPct, Timestamp: trade.Timestamp})
	r.Log.LogTradeExecution(coin, types.SideSell, "trailing_exit", fill.OrderID, fill.Quantity, fill.Price, fill.Value)
	r.sleep(PostTradeSleep)
}

func (r *Runner) executeDCA(ctx context.Context, coin string, pos *types.Position, price, amount float64, reason string) {
	r.Log.Info("DCA buy for %s: reason=%s, amount=$%.2f at %.4f", coin, reason, amount, price)

	fill, err := r.Client.MarketBuy(ctx, coin, amount)
	if err != nil {
		r.Log.Error("DCA buy failed for %s (reason=%s): %v", coin, reason, err)
		r.Health.RecordError("trader", err.Error())
		return
	}

	trade := r.fillToTrade(coin, types.SideBuy, reason, fill)

	pos.Quantity += fill.Quantity
	pos.CostBasisUSD += fill.Value
	pos.DCACount++
	pos.DCATimestamps = append(pos.DCATimestamps, trade.Timestamp)

	r.DCA.RecordDCABuy(coin, trade.Timestamp)
	// PM start line drops after DCA; trailing restarts from scratch.
	pos.ResetTrailing()

	r.recordTrade(trade)
	r.Bus.Publish(events.DCATriggered{Coin: coin, Stage: pos.DCACount - 1, Reason: reason, Amount: amount, Timestamp: trade.Timestamp})
	r.Log.LogTradeExecution(coin, types.SideBuy, reason, fill.OrderID, fill.Quantity, fill.Price, fill.Value)
	r.sleep(PostTradeSleep)
}

// readSignals reads the thinker's per-coin signal files, defaulting to
// zero levels when files are missing.
func (r *Runner) readSignals(coin string, cp paths.CoinPaths) types.Signal {
	return types.Signal{
		Coin:       coin,
		LongLevel:  store.ReadIntSignal(cp.SignalLong(), 0),
		ShortLevel: store.ReadIntSignal(cp.SignalShort(), 0),
		LongPM:     store.ReadSignal(cp.ProfitMarginLong(), 0),
		ShortPM:    store.ReadSignal(cp.ProfitMarginShort(), 0),
		Timestamp:  float64(r.now().Unix()),
	}
}

// accountValue totals quote balance plus holdings at current prices.
func (r *Runner) accountValue(ctx context.Context, prices map[string]float64) float64 {
	balances, err := r.Client.GetAccountBalance(ctx)
	if err != nil {
		r.Log.Error("Failed to fetch account balance: %v", err)
		return 0
	}
	total := balances[exchange.QuoteAsset]
	for coin, qty := range balances {
		if coin == exchange.QuoteAsset {
			continue
		}
		total += qty * prices[coin]
	}
	return total
}

func (r *Runner) fillToTrade(coin, side, reason string, fill *exchange.Fill) types.Trade {
	t := types.Trade{
		Coin:      coin,
		Side:      side,
		Price:     fill.Price,
		Quantity:  fill.Quantity,
		Value:     fill.Value,
		Reason:    reason,
		Timestamp: float64(r.now().UnixNano()) / 1e9,
		OrderID:   fill.OrderID,
	}
	if fill.FeesUSD > 0 {
		fees := fill.FeesUSD
		t.FeesUSD = &fees
	}
	return t
}

func (r *Runner) recordTrade(trade types.Trade) {
	path := filepath.Join(paths.HubDir(r.BaseDir), paths.TradeHistoryFilename)
	if err := store.AppendJSONL(path, trade.JournalRecord()); err != nil {
		r.Log.Error("Recording trade: %v", err)
	}
	monitoring.RecordTrade(trade.Coin, trade.Side, trade.Reason, trade.Value)
	r.Bus.Publish(events.TradeExecuted{Trade: trade})
}

// seedFromHistory replays the journal so the DCA rate limit survives a
// restart: per coin, the DCA buy timestamps after the most recent
// sell.
func (r *Runner) seedFromHistory() {
	path := filepath.Join(paths.HubDir(r.BaseDir), paths.TradeHistoryFilename)
	records := store.ScanJSONL(path)
	if len(records) == 0 {
		return
	}

	buys := make(map[string][]float64)
	lastSell := make(map[string]float64)
	for _, rec := range records {
		trade := types.TradeFromRecord(rec)
		if trade.Coin == "" {
			continue
		}
		switch {
		case trade.IsSell():
			lastSell[trade.Coin] = trade.Timestamp
			buys[trade.Coin] = nil
		case trade.IsDCA():
			buys[trade.Coin] = append(buys[trade.Coin], trade.Timestamp)
		}
	}

	for coin := range r.coinPaths {
		if len(buys[coin]) > 0 || lastSell[coin] > 0 {
			r.DCA.SeedFromHistory(coin, buys[coin], lastSell[coin])
			r.Log.Info("Seeded DCA window for %s: %d buys in current trade", coin, len(buys[coin]))
		}
	}
}

// writeStatus publishes the hub-facing snapshot plus one account-value
// history record.
func (r *Runner) writeStatus(prices map[string]float64, accountValue float64) {
	hub := paths.HubDir(r.BaseDir)

	positions := make(map[string]interface{}, len(r.positions))
	for coin, pos := range r.positions {
		price := prices[coin]
		entry := map[string]interface{}{
			"quantity":      pos.Quantity,
			"avg_price":     pos.AvgPrice(),
			"entry_price":   pos.EntryPrice,
			"current_price": price,
			"pnl_pct":       pos.PnlPct(price),
			"market_value":  pos.MarketValue(price),
			"dca_count":     pos.DCACount,
		}
		for k, v := range r.Trail.DisplayInfo(pos, price) {
			entry[k] = v
		}
		positions[coin] = entry
	}

	coins := make([]string, 0, len(r.coinPaths))
	for coin := range r.coinPaths {
		coins = append(coins, coin)
	}
	sort.Strings(coins)

	now := float64(r.now().UnixNano()) / 1e9
	status := map[string]interface{}{
		"account_value": accountValue,
		"positions":     positions,
		"coins":         coins,
		"timestamp":     now,
	}
	if err := store.WriteJSON(filepath.Join(hub, paths.TraderStatusFilename), status); err != nil {
		r.Log.Error("Writing trader status: %v", err)
	}
	if err := store.AppendJSONL(filepath.Join(hub, paths.AccountHistoryFilename), map[string]interface{}{
		"value":     accountValue,
		"timestamp": now,
	}); err != nil {
		r.Log.Error("Writing account history: %v", err)
	}
}
