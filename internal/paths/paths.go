// Package paths resolves the shared on-disk layout the three processes
// communicate through. BTC keeps its files directly in the base
// directory; every other coin gets its own subfolder.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// Shared file names inside the base directory.
const (
	SettingsFilename         = "gui_settings.json"
	KillerFilename           = "killer.txt"
	CheckpointFilename       = "trainer_checkpoint.json"
	TrainerStatusFilename    = "trainer_status.json"
	TrainerProgressFilename  = "trainer_progress.json"
	LastTrainingTimeFilename = "trainer_last_training_time.txt"

	HubDirName             = "hub_data"
	TraderStatusFilename   = "trader_status.json"
	TradeHistoryFilename   = "trade_history.jsonl"
	AccountHistoryFilename = "account_value_history.jsonl"

	KeyFilename    = "b_key.txt"
	SecretFilename = "b_secret.txt"
)

// Per-coin file names (relative to the coin folder).
const (
	longSignalFilename  = "long_dca_signal.txt"
	shortSignalFilename = "short_dca_signal.txt"
	longPMFilename      = "futures_long_profit_margin.txt"
	shortPMFilename     = "futures_short_profit_margin.txt"
	highBoundsFilename  = "high_bound_prices.html"
	lowBoundsFilename   = "low_bound_prices.html"
)

// CoinPaths resolves every file belonging to one coin.
type CoinPaths struct {
	Coin string
	Base string
}

// NewCoinPaths builds the resolver for a coin. BTC maps to the base
// directory itself, any other coin to a subfolder named after it.
func NewCoinPaths(baseDir, coin string) CoinPaths {
	coin = strings.ToUpper(strings.TrimSpace(coin))
	base := baseDir
	if coin != "BTC" {
		base = filepath.Join(baseDir, coin)
	}
	return CoinPaths{Coin: coin, Base: base}
}

func (p CoinPaths) MemoryFile(tf string) string {
	return filepath.Join(p.Base, "memories_"+tf+".txt")
}

func (p CoinPaths) WeightFile(tf string) string {
	return filepath.Join(p.Base, "memory_weights_"+tf+".txt")
}

func (p CoinPaths) WeightHighFile(tf string) string {
	return filepath.Join(p.Base, "memory_weights_high_"+tf+".txt")
}

func (p CoinPaths) WeightLowFile(tf string) string {
	return filepath.Join(p.Base, "memory_weights_low_"+tf+".txt")
}

func (p CoinPaths) ThresholdFile(tf string) string {
	return filepath.Join(p.Base, "neural_perfect_threshold_"+tf+".txt")
}

func (p CoinPaths) SignalLong() string  { return filepath.Join(p.Base, longSignalFilename) }
func (p CoinPaths) SignalShort() string { return filepath.Join(p.Base, shortSignalFilename) }

func (p CoinPaths) ProfitMarginLong() string  { return filepath.Join(p.Base, longPMFilename) }
func (p CoinPaths) ProfitMarginShort() string { return filepath.Join(p.Base, shortPMFilename) }

func (p CoinPaths) BoundsHigh() string { return filepath.Join(p.Base, highBoundsFilename) }
func (p CoinPaths) BoundsLow() string  { return filepath.Join(p.Base, lowBoundsFilename) }

func (p CoinPaths) CurrentPrice() string {
	return filepath.Join(p.Base, p.Coin+"_current_price.txt")
}

// EnsureDir creates the coin folder if missing.
func (p CoinPaths) EnsureDir() error {
	return os.MkdirAll(p.Base, 0o755)
}

// BuildCoinPaths maps every configured coin to its resolver. Non-BTC
// coins whose folder does not exist are excluded unless createMissing
// is set, so the trader never trades a coin the trainer has not set up.
func BuildCoinPaths(baseDir string, coins []string, createMissing bool) map[string]CoinPaths {
	out := make(map[string]CoinPaths, len(coins))
	for _, raw := range coins {
		sym := strings.ToUpper(strings.TrimSpace(raw))
		if sym == "" {
			continue
		}
		cp := NewCoinPaths(baseDir, sym)
		if createMissing {
			if err := cp.EnsureDir(); err != nil {
				continue
			}
		}
		if sym == "BTC" {
			out[sym] = cp
			continue
		}
		if info, err := os.Stat(cp.Base); err == nil && info.IsDir() {
			out[sym] = cp
		}
	}
	return out
}

// HubDir returns the trader output directory under base.
func HubDir(baseDir string) string { return filepath.Join(baseDir, HubDirName) }

// LogsDir returns the shared log directory under base.
func LogsDir(baseDir string) string { return filepath.Join(baseDir, "logs") }
