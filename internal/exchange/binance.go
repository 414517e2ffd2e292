package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/powertrader/powertrader/internal/safety"
	"github.com/powertrader/powertrader/pkg/types"
)

// binanceIntervals maps canonical timeframes to Binance kline
// interval strings.
var binanceIntervals = map[string]string{
	"1hour":  "1h",
	"2hour":  "2h",
	"4hour":  "4h",
	"8hour":  "8h",
	"12hour": "12h",
	"1day":   "1d",
	"1week":  "1w",
}

// binanceStatusMap normalises Binance order statuses.
var binanceStatusMap = map[string]string{
	"NEW":              "pending",
	"PARTIALLY_FILLED": "pending",
	"FILLED":           "filled",
	"CANCELED":         "canceled",
	"REJECTED":         "rejected",
	"EXPIRED":          "expired",
	"EXPIRED_IN_MATCH": "expired",
}

var terminalStates = map[string]bool{
	"filled":   true,
	"canceled": true,
	"rejected": true,
	"expired":  true,
}

// stablecoins excluded from holdings reconciliation.
var stablecoins = map[string]bool{
	"USDT": true, "USDC": true, "BUSD": true, "TUSD": true, "DAI": true,
}

const orderPollTimeout = 30 * time.Second

// lotSize holds the cached LOT_SIZE filter for one symbol.
type lotSize struct {
	StepSize string
	MinQty   string
}

// BinanceClient talks to Binance spot: public market data plus signed
// account and order endpoints. It implements both MarketDataClient and
// TradingClient.
type BinanceClient struct {
	apiKey  string
	secret  string
	testnet bool
	client  *http.Client
	baseURL string

	limiter      *safety.RateLimiter
	breaker      *safety.CircuitBreaker
	lotSizeCache map[string]lotSize
}

// NewBinanceClient creates a Binance client. Credentials may be empty
// when only public market data is used.
func NewBinanceClient(apiKey, secret string, testnet bool) *BinanceClient {
	baseURL := "https://api.binance.com"
	if testnet {
		baseURL = "https://testnet.binance.vision"
	}

	return &BinanceClient{
		apiKey:  apiKey,
		secret:  secret,
		testnet: testnet,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:      baseURL,
		limiter:      safety.NewRateLimiter("binance", 10, 5),
		breaker:      safety.NewCircuitBreaker("binance-signed", safety.AccountBreakerConfig()),
		lotSizeCache: make(map[string]lotSize),
	}
}

func (b *BinanceClient) Name() string { return "binance" }

// Connect verifies reachability via the server time endpoint.
func (b *BinanceClient) Connect(ctx context.Context) error {
	var out struct {
		ServerTime int64 `json:"serverTime"`
	}
	if err := b.public(ctx, "/api/v3/time", nil, &out); err != nil {
		return fmt.Errorf("failed to connect to Binance: %w", err)
	}
	return nil
}

// -- market data -----------------------------------------------------

// GetKlines fetches candles from /api/v3/klines.
func (b *BinanceClient) GetKlines(ctx context.Context, coin, timeframe string, limit int, start, end time.Time) ([]types.Candle, error) {
	interval, ok := binanceIntervals[timeframe]
	if !ok {
		return nil, NewRejectedError("unknown timeframe " + timeframe)
	}
	params := url.Values{}
	params.Set("symbol", ToSymbol(coin))
	params.Set("interval", interval)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if !start.IsZero() {
		params.Set("startTime", strconv.FormatInt(start.UnixMilli(), 10))
	}
	if !end.IsZero() {
		params.Set("endTime", strconv.FormatInt(end.UnixMilli(), 10))
	}

	var raw [][]interface{}
	err := safety.Retry(ctx, safety.MarketRetryConfig(), func() error {
		return b.public(ctx, "/api/v3/klines", params, &raw)
	})
	if err != nil {
		return nil, err
	}

	candles := make([]types.Candle, 0, len(raw))
	for _, item := range raw {
		// [openTime, open, high, low, close, volume, ...]
		if len(item) < 6 {
			continue
		}
		ts, ok := item[0].(float64)
		if !ok {
			continue
		}
		candles = append(candles, types.Candle{
			Timestamp: time.UnixMilli(int64(ts)),
			Open:      anyFloat(item[1]),
			High:      anyFloat(item[2]),
			Low:       anyFloat(item[3]),
			Close:     anyFloat(item[4]),
			Volume:    anyFloat(item[5]),
		})
	}
	return candles, nil
}

// GetCurrentPrice returns the last traded price.
func (b *BinanceClient) GetCurrentPrice(ctx context.Context, coin string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", ToSymbol(coin))

	var out struct {
		Price string `json:"price"`
	}
	err := safety.Retry(ctx, safety.MarketRetryConfig(), func() error {
		return b.public(ctx, "/api/v3/ticker/price", params, &out)
	})
	if err != nil {
		return 0, err
	}
	return strFloat(out.Price), nil
}

// GetCurrentPrices returns the orderbook mid price per coin. Coins
// whose ticker fails or has a one-sided book are omitted.
func (b *BinanceClient) GetCurrentPrices(ctx context.Context, coins []string) (map[string]float64, error) {
	result := make(map[string]float64, len(coins))
	for _, coin := range coins {
		params := url.Values{}
		params.Set("symbol", ToSymbol(coin))

		var out struct {
			AskPrice string `json:"askPrice"`
			BidPrice string `json:"bidPrice"`
		}
		err := safety.Retry(ctx, safety.MarketRetryConfig(), func() error {
			return b.public(ctx, "/api/v3/ticker/bookTicker", params, &out)
		})
		if err != nil {
			continue
		}
		ask, bid := strFloat(out.AskPrice), strFloat(out.BidPrice)
		if ask > 0 && bid > 0 {
			result[coin] = (ask + bid) / 2
		}
	}
	return result, nil
}

// -- account ---------------------------------------------------------

func (b *BinanceClient) accountBalances(ctx context.Context) (map[string]float64, error) {
	var out struct {
		Balances []struct {
			Asset  string `json:"asset"`
			Free   string `json:"free"`
			Locked string `json:"locked"`
		} `json:"balances"`
	}
	err := safety.Retry(ctx, safety.TradingRetryConfig(), func() error {
		return b.signed(ctx, http.MethodGet, "/api/v3/account", nil, &out)
	})
	if err != nil {
		return nil, err
	}

	balances := make(map[string]float64)
	for _, bal := range out.Balances {
		total := strFloat(bal.Free) + strFloat(bal.Locked)
		if total > 0 {
			balances[bal.Asset] = total
		}
	}
	return balances, nil
}

// GetAccountBalance returns all non-zero balances.
func (b *BinanceClient) GetAccountBalance(ctx context.Context) (map[string]float64, error) {
	return b.accountBalances(ctx)
}

// GetHoldings returns non-zero coin balances excluding stablecoins.
func (b *BinanceClient) GetHoldings(ctx context.Context) (map[string]float64, error) {
	balances, err := b.accountBalances(ctx)
	if err != nil {
		return nil, err
	}
	holdings := make(map[string]float64)
	for asset, total := range balances {
		if stablecoins[asset] {
			continue
		}
		holdings[asset] = total
	}
	return holdings, nil
}

// -- orders ----------------------------------------------------------

// MarketBuy spends quoteAmount USDT on coin. The quantity is derived
// from the current ask and floored to the LOT_SIZE step.
func (b *BinanceClient) MarketBuy(ctx context.Context, coin string, quoteAmount float64) (*Fill, error) {
	symbol := ToSymbol(coin)
	ask, err := b.askPrice(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if ask <= 0 {
		return nil, NewRejectedError("no valid ask price for " + symbol)
	}

	qty, err := b.roundToLotSize(ctx, symbol, quoteAmount/ask)
	if err != nil {
		return nil, err
	}
	if qty == "" {
		return nil, NewRejectedError(fmt.Sprintf("buy quantity below minQty for %s (amount=%.2f)", symbol, quoteAmount))
	}
	return b.placeOrder(ctx, symbol, "BUY", qty)
}

// MarketSell sells quantity units of coin, floored to the LOT_SIZE
// step.
func (b *BinanceClient) MarketSell(ctx context.Context, coin string, quantity float64) (*Fill, error) {
	symbol := ToSymbol(coin)
	qty, err := b.roundToLotSize(ctx, symbol, quantity)
	if err != nil {
		return nil, err
	}
	if qty == "" {
		return nil, NewRejectedError("sell quantity below minQty for " + symbol)
	}
	return b.placeOrder(ctx, symbol, "SELL", qty)
}

type binanceOrder struct {
	OrderID     int64  `json:"orderId"`
	Status      string `json:"status"`
	ExecutedQty string `json:"executedQty"`
	CumQuoteQty string `json:"cummulativeQuoteQty"`
	Fills       []struct {
		Price           string `json:"price"`
		Qty             string `json:"qty"`
		Commission      string `json:"commission"`
		CommissionAsset string `json:"commissionAsset"`
	} `json:"fills"`
}

// placeOrder submits a market order and polls it to a terminal state.
// Placement is deliberately not retried: a timed-out request may have
// filled, and re-sending would double the position.
func (b *BinanceClient) placeOrder(ctx context.Context, symbol, side, qty string) (*Fill, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", side)
	params.Set("type", "MARKET")
	params.Set("quantity", qty)
	params.Set("newClientOrderId", uuid.NewString())

	var placed binanceOrder
	if err := b.signed(ctx, http.MethodPost, "/api/v3/order", params, &placed); err != nil {
		return nil, err
	}

	final := b.waitTerminal(ctx, symbol, placed.OrderID)
	if final == nil {
		final = &placed
	}

	fill := extractFill(final)
	if fill == nil {
		return nil, NewRejectedError(fmt.Sprintf("order %d on %s reached %q with no fill", placed.OrderID, symbol, final.Status))
	}
	return fill, nil
}

// waitTerminal polls the order until a terminal status or timeout.
func (b *BinanceClient) waitTerminal(ctx context.Context, symbol string, orderID int64) *binanceOrder {
	deadline := time.Now().Add(orderPollTimeout)
	for time.Now().Before(deadline) {
		params := url.Values{}
		params.Set("symbol", symbol)
		params.Set("orderId", strconv.FormatInt(orderID, 10))

		var out binanceOrder
		if err := b.signed(ctx, http.MethodGet, "/api/v3/order", params, &out); err == nil {
			state := binanceStatusMap[strings.ToUpper(out.Status)]
			if terminalStates[state] {
				return &out
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Second):
		}
	}
	return nil
}

// extractFill computes the filled quantity and average price: VWAP of
// the fill legs when present, else cumQuote/executedQty. Returns nil
// when nothing filled.
func extractFill(order *binanceOrder) *Fill {
	var qty, notional, fees float64
	for _, f := range order.Fills {
		q, p := strFloat(f.Qty), strFloat(f.Price)
		if q > 0 && p > 0 {
			qty += q
			notional += q * p
		}
		if f.CommissionAsset == QuoteAsset {
			fees += strFloat(f.Commission)
		}
	}

	if qty <= 0 {
		qty = strFloat(order.ExecutedQty)
		notional = strFloat(order.CumQuoteQty)
	}
	if qty <= 0 || notional <= 0 {
		return nil
	}

	price := notional / qty
	return &Fill{
		OrderID:  strconv.FormatInt(order.OrderID, 10),
		Quantity: qty,
		Price:    price,
		Value:    qty * price,
		FeesUSD:  fees,
	}
}

// -- LOT_SIZE handling -----------------------------------------------

func (b *BinanceClient) getLotSize(ctx context.Context, symbol string) (lotSize, error) {
	if ls, ok := b.lotSizeCache[symbol]; ok {
		return ls, nil
	}

	params := url.Values{}
	params.Set("symbol", symbol)

	var out struct {
		Symbols []struct {
			Filters []struct {
				FilterType string `json:"filterType"`
				StepSize   string `json:"stepSize"`
				MinQty     string `json:"minQty"`
			} `json:"filters"`
		} `json:"symbols"`
	}
	err := safety.Retry(ctx, safety.MarketRetryConfig(), func() error {
		return b.public(ctx, "/api/v3/exchangeInfo", params, &out)
	})
	if err != nil {
		return lotSize{}, err
	}

	ls := lotSize{StepSize: "0.00000001", MinQty: "0.00000001"}
	if len(out.Symbols) > 0 {
		for _, f := range out.Symbols[0].Filters {
			if f.FilterType == "LOT_SIZE" {
				ls = lotSize{StepSize: f.StepSize, MinQty: f.MinQty}
				break
			}
		}
	}
	b.lotSizeCache[symbol] = ls
	return ls, nil
}

// roundToLotSize floors quantity to the symbol's step size. The empty
// string means the result fell below minQty and must not be sent.
func (b *BinanceClient) roundToLotSize(ctx context.Context, symbol string, quantity float64) (string, error) {
	ls, err := b.getLotSize(ctx, symbol)
	if err != nil {
		return "", err
	}
	return FloorToStep(quantity, ls.StepSize, ls.MinQty), nil
}

func (b *BinanceClient) askPrice(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var out struct {
		AskPrice string `json:"askPrice"`
	}
	err := safety.Retry(ctx, safety.MarketRetryConfig(), func() error {
		return b.public(ctx, "/api/v3/ticker/bookTicker", params, &out)
	})
	if err != nil {
		return 0, err
	}
	return strFloat(out.AskPrice), nil
}

// -- transport -------------------------------------------------------

func (b *BinanceClient) public(ctx context.Context, path string, params url.Values, out interface{}) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	u := b.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return NewAPIError("build request", err)
	}
	return b.do(req, out)
}

func (b *BinanceClient) signed(ctx context.Context, method, path string, params url.Values, out interface{}) error {
	if b.apiKey == "" || b.secret == "" {
		return NewRejectedError("signed call without credentials")
	}
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	params.Set("recvWindow", "5000")

	query := params.Encode()
	mac := hmac.New(sha256.New, []byte(b.secret))
	mac.Write([]byte(query))
	query += "&signature=" + hex.EncodeToString(mac.Sum(nil))

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path+"?"+query, nil)
	if err != nil {
		return NewAPIError("build request", err)
	}
	req.Header.Set("X-MBX-APIKEY", b.apiKey)
	return b.breaker.Call(func() error { return b.do(req, out) })
}

func (b *BinanceClient) do(req *http.Request, out interface{}) error {
	resp, err := b.client.Do(req)
	if err != nil {
		return NewAPIError("request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return NewAPIError("read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Code int    `json:"code"`
			Msg  string `json:"msg"`
		}
		_ = json.Unmarshal(body, &apiErr)
		msg := fmt.Sprintf("status %d code %d: %s", resp.StatusCode, apiErr.Code, apiErr.Msg)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return NewAPIError(msg, nil)
		}
		return NewRejectedError(msg)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return NewAPIError("decode response", err)
	}
	return nil
}

func strFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func anyFloat(v interface{}) float64 {
	switch n := v.(type) {
	case string:
		return strFloat(n)
	case float64:
		return n
	}
	return 0
}
