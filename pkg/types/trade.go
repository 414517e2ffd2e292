package types

import "strings"

// Trade side values as stored in the journal.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Trade is an immutable record of one executed order. It is appended
// to trade_history.jsonl and consumed by the status and export tools.
type Trade struct {
	Coin      string
	Side      string
	Price     float64
	Quantity  float64
	Value     float64
	Reason    string
	Timestamp float64
	PnlPct    *float64
	FeesUSD   *float64
	OrderID   string
}

func (t Trade) IsBuy() bool  { return t.Side == SideBuy }
func (t Trade) IsSell() bool { return t.Side == SideSell }

// IsDCA reports whether the trade was a DCA buy, hard or neural.
func (t Trade) IsDCA() bool { return strings.HasPrefix(t.Reason, "dca_") || strings.HasPrefix(t.Reason, "hard_stage_") || strings.HasPrefix(t.Reason, "neural_") }

// JournalRecord converts the trade to the trade_history.jsonl schema.
// Keys and casing match the files written by earlier versions, so the
// journal stays readable by existing tooling.
func (t Trade) JournalRecord() map[string]interface{} {
	rec := map[string]interface{}{
		"ts":     t.Timestamp,
		"side":   strings.ToLower(t.Side),
		"tag":    t.Reason,
		"symbol": t.Coin,
		"qty":    t.Quantity,
		"price":  t.Price,
	}
	if t.PnlPct != nil {
		rec["pnl_pct"] = *t.PnlPct
	}
	if t.FeesUSD != nil {
		rec["fees_usd"] = *t.FeesUSD
	}
	if t.OrderID != "" {
		rec["order_id"] = t.OrderID
	}
	return rec
}

// TradeFromRecord rebuilds a Trade from a journal record, tolerating
// both the current schema and the legacy one (coin/quantity/timestamp
// key names, upper-case side).
func TradeFromRecord(rec map[string]interface{}) Trade {
	t := Trade{
		Coin:      firstString(rec, "symbol", "coin"),
		Side:      strings.ToUpper(firstString(rec, "side")),
		Price:     firstFloat(rec, "price"),
		Quantity:  firstFloat(rec, "qty", "quantity"),
		Value:     firstFloat(rec, "value"),
		Reason:    firstString(rec, "tag", "reason"),
		Timestamp: firstFloat(rec, "ts", "timestamp"),
		OrderID:   firstString(rec, "order_id"),
	}
	if t.Side == "" {
		t.Side = SideBuy
	}
	if t.Value == 0 {
		t.Value = t.Price * t.Quantity
	}
	if v, ok := optFloat(rec["pnl_pct"]); ok {
		t.PnlPct = &v
	}
	if v, ok := optFloat(rec["fees_usd"]); ok {
		t.FeesUSD = &v
	}
	return t
}

func firstString(rec map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := rec[k]; ok && v != nil {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

func firstFloat(rec map[string]interface{}, keys ...string) float64 {
	for _, k := range keys {
		if v, ok := optFloat(rec[k]); ok {
			return v
		}
	}
	return 0
}

func optFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
