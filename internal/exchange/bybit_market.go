package exchange

import (
	"context"
	"time"

	"github.com/powertrader/powertrader/internal/exchange/bybit"
	"github.com/powertrader/powertrader/internal/safety"
	"github.com/powertrader/powertrader/pkg/types"
)

// BybitMarketClient serves public market data from Bybit spot. It is
// the alternative to the Binance market feed; both produce the same
// canonical candles.
type BybitMarketClient struct {
	client  *bybit.Client
	limiter *safety.RateLimiter
}

// NewBybitMarketClient creates a public Bybit market data client.
func NewBybitMarketClient(testnet bool) *BybitMarketClient {
	return &BybitMarketClient{
		client:  bybit.NewClient(bybit.Config{Testnet: testnet}),
		limiter: safety.NewRateLimiter("bybit", 10, 5),
	}
}

func (b *BybitMarketClient) Name() string { return "bybit" }

// GetKlines fetches candles for the coin and timeframe.
func (b *BybitMarketClient) GetKlines(ctx context.Context, coin, timeframe string, limit int, start, end time.Time) ([]types.Candle, error) {
	var candles []types.Candle
	err := safety.Retry(ctx, safety.MarketRetryConfig(), func() error {
		if err := b.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		candles, err = b.client.GetKlines(ctx, bybit.KlineParams{
			Symbol:    ToSymbol(coin),
			Timeframe: timeframe,
			Limit:     limit,
			Start:     start,
			End:       end,
		})
		if err != nil {
			return NewAPIError("bybit klines", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return candles, nil
}

// GetCurrentPrice returns the last traded spot price.
func (b *BybitMarketClient) GetCurrentPrice(ctx context.Context, coin string) (float64, error) {
	var price float64
	err := safety.Retry(ctx, safety.MarketRetryConfig(), func() error {
		if err := b.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		price, err = b.client.GetLatestPrice(ctx, ToSymbol(coin))
		if err != nil {
			return NewAPIError("bybit ticker", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return price, nil
}
