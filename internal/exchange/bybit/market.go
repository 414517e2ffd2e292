package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"github.com/powertrader/powertrader/pkg/types"
)

// intervals maps canonical timeframes to Bybit v5 interval strings.
// Bybit has no native 8-hour interval; 8hour is aggregated from pairs
// of 4-hour candles.
var intervals = map[string]string{
	"1hour":  "60",
	"2hour":  "120",
	"4hour":  "240",
	"12hour": "720",
	"1day":   "D",
	"1week":  "W",
}

const maxKlineLimit = 1000

// KlineParams holds parameters for one kline request.
type KlineParams struct {
	Symbol    string // venue pair, e.g. "BTCUSDT"
	Timeframe string // canonical timeframe, e.g. "4hour"
	Limit     int
	Start     time.Time
	End       time.Time
}

// GetKlines fetches spot candles, ascending by open time. The 8hour
// timeframe is served by fetching 4hour candles and merging aligned
// pairs.
func (c *Client) GetKlines(ctx context.Context, params KlineParams) ([]types.Candle, error) {
	if params.Timeframe == "8hour" {
		inner := params
		inner.Timeframe = "4hour"
		inner.Limit = params.Limit * 2
		halves, err := c.GetKlines(ctx, inner)
		if err != nil {
			return nil, err
		}
		merged := aggregatePairs(halves, 8*time.Hour)
		if params.Limit > 0 && len(merged) > params.Limit {
			merged = merged[len(merged)-params.Limit:]
		}
		return merged, nil
	}

	interval, ok := intervals[params.Timeframe]
	if !ok {
		return nil, fmt.Errorf("unknown timeframe %q", params.Timeframe)
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 200
	}

	// The venue caps each call at 1000 rows, so larger requests page
	// backwards inside the window.
	var all []types.Candle
	end := params.End
	for len(all) < limit {
		call := limit - len(all)
		if call > maxKlineLimit {
			call = maxKlineLimit
		}
		batch, err := c.fetchKlines(ctx, params.Symbol, interval, call, params.Start, end)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		all = append(batch, all...)
		if len(batch) < call {
			break
		}
		end = batch[0].Timestamp.Add(-time.Millisecond)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Timestamp.Before(all[j].Timestamp) })
	return all, nil
}

func (c *Client) fetchKlines(ctx context.Context, symbol, interval string, limit int, start, end time.Time) ([]types.Candle, error) {
	reqParams := map[string]interface{}{
		"category": "spot",
		"symbol":   symbol,
		"interval": interval,
		"limit":    limit,
	}
	if !start.IsZero() {
		reqParams["start"] = start.UnixMilli()
	}
	if !end.IsZero() {
		reqParams["end"] = end.UnixMilli()
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(reqParams).GetMarketKline(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get klines: %w", err)
	}

	candles, err := parseKlineResponse(result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse kline response: %w", err)
	}
	return candles, nil
}

// GetLatestPrice gets the latest spot price for a symbol.
func (c *Client) GetLatestPrice(ctx context.Context, symbol string) (float64, error) {
	params := map[string]interface{}{
		"category": "spot",
		"symbol":   symbol,
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetMarketTickers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest price: %w", err)
	}

	price, err := parseLatestPriceResponse(result)
	if err != nil {
		return 0, fmt.Errorf("failed to parse price response: %w", err)
	}
	return price, nil
}

// parseKlineResponse parses the API response into candles, ascending.
func parseKlineResponse(response interface{}) ([]types.Candle, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, fmt.Errorf("invalid response type")
	}
	if serverResp.RetCode != 0 {
		return nil, fmt.Errorf("API error: %s (code: %d)", serverResp.RetMsg, serverResp.RetCode)
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	var klineResult struct {
		Symbol   string     `json:"symbol"`
		Category string     `json:"category"`
		List     [][]string `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &klineResult); err != nil {
		return nil, fmt.Errorf("failed to unmarshal kline result: %w", err)
	}

	// Bybit kline format, newest first:
	// [startTime, open, high, low, close, volume, turnover]
	candles := make([]types.Candle, 0, len(klineResult.List))
	for _, item := range klineResult.List {
		if len(item) < 6 {
			continue
		}
		candles = append(candles, types.Candle{
			Timestamp: time.UnixMilli(parseInt64(item[0])),
			Open:      parseFloat64(item[1]),
			High:      parseFloat64(item[2]),
			Low:       parseFloat64(item[3]),
			Close:     parseFloat64(item[4]),
			Volume:    parseFloat64(item[5]),
		})
	}
	sort.Slice(candles, func(i, j int) bool { return candles[i].Timestamp.Before(candles[j].Timestamp) })
	return candles, nil
}

// parseLatestPriceResponse extracts the last price from a ticker
// response.
func parseLatestPriceResponse(response interface{}) (float64, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return 0, fmt.Errorf("invalid response type")
	}
	if serverResp.RetCode != 0 {
		return 0, fmt.Errorf("API error: %s (code: %d)", serverResp.RetMsg, serverResp.RetCode)
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal result: %w", err)
	}

	var tickerResult struct {
		List []struct {
			Symbol    string `json:"symbol"`
			LastPrice string `json:"lastPrice"`
		} `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &tickerResult); err != nil {
		return 0, fmt.Errorf("failed to unmarshal ticker result: %w", err)
	}
	if len(tickerResult.List) == 0 {
		return 0, fmt.Errorf("no ticker data found")
	}
	return parseFloat64(tickerResult.List[0].LastPrice), nil
}

// aggregatePairs merges candles into buckets of groupDur aligned to
// the epoch, keeping only complete buckets.
func aggregatePairs(candles []types.Candle, groupDur time.Duration) []types.Candle {
	buckets := make(map[int64][]types.Candle)
	var keys []int64
	for _, c := range candles {
		k := c.Timestamp.UnixMilli() / groupDur.Milliseconds()
		if _, ok := buckets[k]; !ok {
			keys = append(keys, k)
		}
		buckets[k] = append(buckets[k], c)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	perBucket := int(groupDur / (4 * time.Hour))
	var out []types.Candle
	for _, k := range keys {
		group := buckets[k]
		if len(group) != perBucket {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].Timestamp.Before(group[j].Timestamp) })
		merged := types.Candle{
			Timestamp: time.UnixMilli(k * groupDur.Milliseconds()),
			Open:      group[0].Open,
			Close:     group[len(group)-1].Close,
			High:      group[0].High,
			Low:       group[0].Low,
		}
		for _, c := range group {
			if c.High > merged.High {
				merged.High = c.High
			}
			if c.Low < merged.Low {
				merged.Low = c.Low
			}
			merged.Volume += c.Volume
		}
		out = append(out, merged)
	}
	return out
}

func parseFloat64(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parseInt64(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}
