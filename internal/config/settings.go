// Package config loads the trading settings shared by the thinker and
// trader from gui_settings.json. The file is edited by hand and by the
// Hub GUI, so every field parses defensively: malformed values fall
// back to defaults and never abort a process.
package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
)

// Defaults applied when gui_settings.json is missing a field or holds
// something unparseable.
const (
	DefaultTradeStartLevel    = 3
	DefaultStartAllocationPct = 0.005
	DefaultDCAMultiplier      = 2.0
	DefaultMaxDCABuysPer24h   = 2
	DefaultPMStartPctNoDCA    = 5.0
	DefaultPMStartPctWithDCA  = 2.5
	DefaultTrailingGapPct     = 0.5
	DefaultCandlesLimit       = 120
	DefaultUIRefreshSeconds   = 1.0
	DefaultChartRefreshSecs   = 10.0
)

// DefaultCoins is the coin list used when none is configured.
var DefaultCoins = []string{"BTC", "ETH", "XRP", "BNB", "DOGE"}

// DefaultDCALevels are the hard DCA trigger thresholds in PnL percent,
// indexed by DCA stage.
var DefaultDCALevels = []float64{-2.5, -5.0, -10.0, -20.0, -30.0, -40.0, -50.0}

// Settings is an immutable snapshot of the trading configuration.
type Settings struct {
	Coins              []string
	MainNeuralDir      string
	TradeStartLevel    int
	StartAllocationPct float64
	DCAMultiplier      float64
	DCALevels          []float64
	MaxDCABuysPer24h   int
	PMStartPctNoDCA    float64
	PMStartPctWithDCA  float64
	TrailingGapPct     float64
	CandlesLimit       int
	UIRefreshSeconds   float64
	ChartRefreshSecs   float64
}

// Default returns the fallback configuration.
func Default() Settings {
	return Settings{
		Coins:              append([]string(nil), DefaultCoins...),
		TradeStartLevel:    DefaultTradeStartLevel,
		StartAllocationPct: DefaultStartAllocationPct,
		DCAMultiplier:      DefaultDCAMultiplier,
		DCALevels:          append([]float64(nil), DefaultDCALevels...),
		MaxDCABuysPer24h:   DefaultMaxDCABuysPer24h,
		PMStartPctNoDCA:    DefaultPMStartPctNoDCA,
		PMStartPctWithDCA:  DefaultPMStartPctWithDCA,
		TrailingGapPct:     DefaultTrailingGapPct,
		CandlesLimit:       DefaultCandlesLimit,
		UIRefreshSeconds:   DefaultUIRefreshSeconds,
		ChartRefreshSecs:   DefaultChartRefreshSecs,
	}
}

// Load reads gui_settings.json. A missing or corrupt file yields the
// defaults; individual bad values fall back per-field. Numeric fields
// may arrive as JSON strings with a trailing "%" (the GUI writes them
// that way).
func Load(path string) Settings {
	var data map[string]interface{}
	raw, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(raw, &data); err != nil {
			data = nil
		}
	}
	if data == nil {
		data = map[string]interface{}{}
	}

	s := Settings{
		Coins:              parseCoins(data["coins"]),
		MainNeuralDir:      stringOr(data["main_neural_dir"], ""),
		TradeStartLevel:    clampInt(safeInt(data["trade_start_level"], DefaultTradeStartLevel), 1, 7),
		StartAllocationPct: safeFloat(data["start_allocation_pct"], DefaultStartAllocationPct),
		DCAMultiplier:      safeFloat(data["dca_multiplier"], DefaultDCAMultiplier),
		DCALevels:          parseDCALevels(data["dca_levels"]),
		MaxDCABuysPer24h:   maxInt(0, safeInt(data["max_dca_buys_per_24h"], DefaultMaxDCABuysPer24h)),
		PMStartPctNoDCA:    safeFloat(data["pm_start_pct_no_dca"], DefaultPMStartPctNoDCA),
		PMStartPctWithDCA:  safeFloat(data["pm_start_pct_with_dca"], DefaultPMStartPctWithDCA),
		TrailingGapPct:     safeFloat(data["trailing_gap_pct"], DefaultTrailingGapPct),
		CandlesLimit:       safeInt(data["candles_limit"], DefaultCandlesLimit),
		UIRefreshSeconds:   safeFloat(data["ui_refresh_seconds"], DefaultUIRefreshSeconds),
		ChartRefreshSecs:   safeFloat(data["chart_refresh_seconds"], DefaultChartRefreshSecs),
	}
	return s
}

// Validate returns human-readable warnings. Callers log them; nothing
// here is fatal.
func (s Settings) Validate() []string {
	var warns []string
	if len(s.Coins) == 0 {
		warns = append(warns, "no coins configured")
	}
	if s.TradeStartLevel < 1 || s.TradeStartLevel > 7 {
		warns = append(warns, "trade_start_level outside 1-7 range")
	}
	if s.StartAllocationPct <= 0 {
		warns = append(warns, "start_allocation_pct must be > 0")
	}
	if s.DCAMultiplier < 0 {
		warns = append(warns, "dca_multiplier must be >= 0")
	}
	if len(s.DCALevels) == 0 {
		warns = append(warns, "dca_levels is empty")
	}
	if s.PMStartPctNoDCA <= 0 {
		warns = append(warns, "pm_start_pct_no_dca must be > 0")
	}
	if s.PMStartPctWithDCA <= 0 {
		warns = append(warns, "pm_start_pct_with_dca must be > 0")
	}
	if s.TrailingGapPct <= 0 {
		warns = append(warns, "trailing_gap_pct must be > 0")
	}
	return warns
}

func parseCoins(v interface{}) []string {
	raw, ok := v.([]interface{})
	if !ok || len(raw) == 0 {
		return append([]string(nil), DefaultCoins...)
	}
	var coins []string
	for _, c := range raw {
		sym := strings.ToUpper(strings.TrimSpace(stringOr(c, "")))
		if sym != "" {
			coins = append(coins, sym)
		}
	}
	if len(coins) == 0 {
		return append([]string(nil), DefaultCoins...)
	}
	return coins
}

func parseDCALevels(v interface{}) []float64 {
	raw, ok := v.([]interface{})
	if !ok || len(raw) == 0 {
		return append([]float64(nil), DefaultDCALevels...)
	}
	levels := make([]float64, 0, len(raw))
	for _, lv := range raw {
		f, ok := coerceFloat(lv)
		if !ok {
			return append([]float64(nil), DefaultDCALevels...)
		}
		levels = append(levels, f)
	}
	return levels
}

func stringOr(v interface{}, def string) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'g', -1, 64)
	}
	return def
}

// coerceFloat accepts JSON numbers and numeric strings, tolerating a
// trailing "%".
func coerceFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		cleaned := strings.TrimSpace(strings.ReplaceAll(n, "%", ""))
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func safeFloat(v interface{}, def float64) float64 {
	if f, ok := coerceFloat(v); ok {
		return f
	}
	return def
}

func safeInt(v interface{}, def int) int {
	if f, ok := coerceFloat(v); ok {
		return int(f)
	}
	return def
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
