package exchange

import (
	"context"
	"fmt"
	"sync"
)

// Paper venue parameters.
const (
	PaperStartUSDT = 10_000.0
	PaperFeeRate   = 0.001 // 0.1% taker fee, Binance spot default
)

// PaperClient simulates fills against live prices from a real market
// feed. Buys pay the fee in the base asset (the received quantity is
// reduced); sells pay it in the quote (the received USDT is reduced),
// matching how Binance charges spot taker fees.
type PaperClient struct {
	market MarketDataClient

	mu       sync.Mutex
	balances map[string]float64
	nextID   int
}

// NewPaperClient creates a paper venue starting with PaperStartUSDT.
func NewPaperClient(market MarketDataClient) *PaperClient {
	return &PaperClient{
		market:   market,
		balances: map[string]float64{QuoteAsset: PaperStartUSDT},
	}
}

func (p *PaperClient) Name() string { return "paper" }

// GetAccountBalance returns all non-zero balances.
func (p *PaperClient) GetAccountBalance(ctx context.Context) (map[string]float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]float64, len(p.balances))
	for asset, total := range p.balances {
		if total > 0 {
			out[asset] = total
		}
	}
	return out, nil
}

// GetHoldings returns non-zero coin balances, quote excluded.
func (p *PaperClient) GetHoldings(ctx context.Context) (map[string]float64, error) {
	balances, err := p.GetAccountBalance(ctx)
	if err != nil {
		return nil, err
	}
	delete(balances, QuoteAsset)
	return balances, nil
}

// MarketBuy spends quoteAmount USDT on coin at the live price.
func (p *PaperClient) MarketBuy(ctx context.Context, coin string, quoteAmount float64) (*Fill, error) {
	price, err := p.market.GetCurrentPrice(ctx, coin)
	if err != nil {
		return nil, err
	}
	if price <= 0 {
		return nil, NewRejectedError("no price for " + coin)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.balances[QuoteAsset] < quoteAmount {
		return nil, NewRejectedError(fmt.Sprintf("insufficient USDT: have %.2f, need %.2f", p.balances[QuoteAsset], quoteAmount))
	}

	grossQty := quoteAmount / price
	fee := grossQty * PaperFeeRate
	netQty := grossQty - fee

	p.balances[QuoteAsset] -= quoteAmount
	p.balances[coin] += netQty

	return &Fill{
		OrderID:  p.orderID(),
		Quantity: netQty,
		Price:    price,
		Value:    netQty * price,
		FeesUSD:  fee * price,
	}, nil
}

// MarketSell sells quantity units of coin at the live price.
func (p *PaperClient) MarketSell(ctx context.Context, coin string, quantity float64) (*Fill, error) {
	price, err := p.market.GetCurrentPrice(ctx, coin)
	if err != nil {
		return nil, err
	}
	if price <= 0 {
		return nil, NewRejectedError("no price for " + coin)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	held := p.balances[coin]
	if held <= 0 {
		return nil, NewRejectedError("no holdings of " + coin)
	}
	if quantity > held {
		quantity = held
	}

	gross := quantity * price
	fee := gross * PaperFeeRate
	net := gross - fee

	p.balances[coin] -= quantity
	if p.balances[coin] < 1e-12 {
		delete(p.balances, coin)
	}
	p.balances[QuoteAsset] += net

	return &Fill{
		OrderID:  p.orderID(),
		Quantity: quantity,
		Price:    price,
		Value:    gross,
		FeesUSD:  fee,
	}, nil
}

// GetCurrentPrices reads live prices from the market feed.
func (p *PaperClient) GetCurrentPrices(ctx context.Context, coins []string) (map[string]float64, error) {
	out := make(map[string]float64, len(coins))
	for _, coin := range coins {
		price, err := p.market.GetCurrentPrice(ctx, coin)
		if err != nil || price <= 0 {
			continue
		}
		out[coin] = price
	}
	return out, nil
}

func (p *PaperClient) orderID() string {
	p.nextID++
	return fmt.Sprintf("paper-%d", p.nextID)
}

// SetBalance overrides an asset balance. Test hook.
func (p *PaperClient) SetBalance(asset string, total float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balances[asset] = total
}

var _ TradingClient = (*PaperClient)(nil)
