// Package exchange holds the venue clients: public market data
// (Binance or Bybit), signed Binance spot trading, and the built-in
// paper venue. The runners depend only on the two interfaces here.
package exchange

import (
	"context"
	"sort"
	"time"

	"github.com/powertrader/powertrader/internal/pattern"
	"github.com/powertrader/powertrader/pkg/types"
)

// MarketDataClient serves public candle and price data.
type MarketDataClient interface {
	// GetKlines fetches up to limit candles for the coin and
	// timeframe, optionally restricted to [start, end]. Candles come
	// back in ascending time order.
	GetKlines(ctx context.Context, coin, timeframe string, limit int, start, end time.Time) ([]types.Candle, error)

	// GetCurrentPrice returns the last traded price, 0 when unknown.
	GetCurrentPrice(ctx context.Context, coin string) (float64, error)

	// Name identifies the venue for logs and metrics.
	Name() string
}

// Fill is the normalised result of an executed market order.
type Fill struct {
	OrderID  string
	Quantity float64
	Price    float64 // average fill price
	Value    float64 // quantity * price
	FeesUSD  float64
}

// TradingClient places orders and reads account state on a venue.
type TradingClient interface {
	// GetAccountBalance returns {asset: total} for non-zero balances,
	// always including the quote asset.
	GetAccountBalance(ctx context.Context) (map[string]float64, error)

	// GetHoldings returns non-zero coin quantities, quote and
	// stablecoin assets excluded.
	GetHoldings(ctx context.Context) (map[string]float64, error)

	// MarketBuy spends quoteAmount USDT on coin at market.
	MarketBuy(ctx context.Context, coin string, quoteAmount float64) (*Fill, error)

	// MarketSell sells quantity units of coin at market.
	MarketSell(ctx context.Context, coin string, quantity float64) (*Fill, error)

	// GetCurrentPrices returns the current mid price per coin;
	// coins with no price are omitted.
	GetCurrentPrices(ctx context.Context, coins []string) (map[string]float64, error)

	// Name identifies the venue for logs and metrics.
	Name() string
}

// Trainer pagination bounds.
const (
	MaxHistoryCandles = 100_000
	KlineBatchSize    = 1500
)

// GetAllKlines paginates backwards from now to collect up to
// maxCandles of history, deduplicated and sorted ascending. A short
// batch ends the walk: the venue has no older data.
func GetAllKlines(ctx context.Context, client MarketDataClient, coin, timeframe string, maxCandles int) ([]types.Candle, error) {
	tfMinutes, ok := pattern.TimeframeMinutes[timeframe]
	if !ok {
		return nil, NewRejectedError("unknown timeframe " + timeframe)
	}
	tfDur := time.Duration(tfMinutes) * time.Minute

	var all []types.Candle
	end := time.Now()
	for len(all) < maxCandles {
		start := end.Add(-time.Duration(KlineBatchSize) * tfDur)
		batch, err := client.GetKlines(ctx, coin, timeframe, KlineBatchSize, start, end)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		all = append(all, batch...)
		if len(batch) < KlineBatchSize {
			break
		}
		end = start
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Timestamp.Before(all[j].Timestamp) })
	unique := all[:0]
	var last time.Time
	for _, c := range all {
		if len(unique) > 0 && c.Timestamp.Equal(last) {
			continue
		}
		unique = append(unique, c)
		last = c.Timestamp
	}
	if len(unique) > maxCandles {
		unique = unique[:maxCandles]
	}
	return unique, nil
}
