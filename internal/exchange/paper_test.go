package exchange

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/powertrader/powertrader/pkg/types"
)

// fakeMarket serves fixed prices for paper trading tests.
type fakeMarket struct {
	prices map[string]float64
}

func (f *fakeMarket) GetKlines(ctx context.Context, coin, timeframe string, limit int, start, end time.Time) ([]types.Candle, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeMarket) GetCurrentPrice(ctx context.Context, coin string) (float64, error) {
	price, ok := f.prices[coin]
	if !ok {
		return 0, errors.New("no price")
	}
	return price, nil
}

func (f *fakeMarket) Name() string { return "fake" }

func newTestPaper(prices map[string]float64) *PaperClient {
	return NewPaperClient(&fakeMarket{prices: prices})
}

// TestPaperBuy_FeeInBaseAsset reduces the received quantity by the fee
func TestPaperBuy_FeeInBaseAsset(t *testing.T) {
	p := newTestPaper(map[string]float64{"BTC": 50_000})
	ctx := context.Background()

	fill, err := p.MarketBuy(ctx, "BTC", 1000)
	require.NoError(t, err)

	grossQty := 1000.0 / 50_000
	expectedQty := grossQty * (1 - PaperFeeRate)
	assert.InDelta(t, expectedQty, fill.Quantity, 1e-12)
	assert.Equal(t, 50_000.0, fill.Price)
	assert.InDelta(t, grossQty*PaperFeeRate*50_000, fill.FeesUSD, 1e-9)

	balances, err := p.GetAccountBalance(ctx)
	require.NoError(t, err)
	assert.InDelta(t, PaperStartUSDT-1000, balances[QuoteAsset], 1e-9)
	assert.InDelta(t, expectedQty, balances["BTC"], 1e-12)
}

// TestPaperBuy_InsufficientFunds rejects overspending
func TestPaperBuy_InsufficientFunds(t *testing.T) {
	p := newTestPaper(map[string]float64{"BTC": 50_000})
	_, err := p.MarketBuy(context.Background(), "BTC", PaperStartUSDT+1)
	require.Error(t, err)

	var exchErr *ExchangeError
	require.ErrorAs(t, err, &exchErr)
	assert.False(t, exchErr.Retryable())
}

// TestPaperSell_FeeInQuote reduces the received USDT by the fee
func TestPaperSell_FeeInQuote(t *testing.T) {
	p := newTestPaper(map[string]float64{"ETH": 2000})
	ctx := context.Background()
	p.SetBalance("ETH", 2)

	fill, err := p.MarketSell(ctx, "ETH", 1)
	require.NoError(t, err)

	gross := 1 * 2000.0
	assert.Equal(t, 1.0, fill.Quantity)
	assert.InDelta(t, gross*PaperFeeRate, fill.FeesUSD, 1e-9)
	assert.InDelta(t, gross, fill.Value, 1e-9)

	balances, err := p.GetAccountBalance(ctx)
	require.NoError(t, err)
	assert.InDelta(t, PaperStartUSDT+gross*(1-PaperFeeRate), balances[QuoteAsset], 1e-9)
	assert.InDelta(t, 1.0, balances["ETH"], 1e-12)
}

// TestPaperSell_CapsAtHoldings sells no more than held
func TestPaperSell_CapsAtHoldings(t *testing.T) {
	p := newTestPaper(map[string]float64{"ETH": 2000})
	ctx := context.Background()
	p.SetBalance("ETH", 0.5)

	fill, err := p.MarketSell(ctx, "ETH", 10)
	require.NoError(t, err)
	assert.Equal(t, 0.5, fill.Quantity)

	holdings, err := p.GetHoldings(ctx)
	require.NoError(t, err)
	_, held := holdings["ETH"]
	assert.False(t, held)
}

// TestPaperSell_NoHoldings rejects selling what is not held
func TestPaperSell_NoHoldings(t *testing.T) {
	p := newTestPaper(map[string]float64{"ETH": 2000})
	_, err := p.MarketSell(context.Background(), "ETH", 1)
	assert.Error(t, err)
}

// TestPaperGetHoldings excludes the quote asset
func TestPaperGetHoldings(t *testing.T) {
	p := newTestPaper(nil)
	p.SetBalance("BTC", 0.1)

	holdings, err := p.GetHoldings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"BTC": 0.1}, holdings)
}

// TestPaperOrderIDs are unique and sequential
func TestPaperOrderIDs(t *testing.T) {
	p := newTestPaper(map[string]float64{"BTC": 100})
	ctx := context.Background()

	f1, err := p.MarketBuy(ctx, "BTC", 10)
	require.NoError(t, err)
	f2, err := p.MarketBuy(ctx, "BTC", 10)
	require.NoError(t, err)
	assert.NotEqual(t, f1.OrderID, f2.OrderID)
}
