package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gui_settings.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestLoad_MissingFile falls back to defaults entirely
func TestLoad_MissingFile(t *testing.T) {
	s := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Equal(t, Default(), s)
}

// TestLoad_CorruptFile falls back to defaults entirely
func TestLoad_CorruptFile(t *testing.T) {
	path := writeSettings(t, "{not json")
	s := Load(path)
	assert.Equal(t, Default(), s)
}

// TestLoad_PercentStrings strips trailing percent signs from numerics
func TestLoad_PercentStrings(t *testing.T) {
	path := writeSettings(t, `{
		"start_allocation_pct": "0.5%",
		"pm_start_pct_no_dca": "7.5%",
		"trailing_gap_pct": " 1.25% "
	}`)
	s := Load(path)
	assert.Equal(t, 0.5, s.StartAllocationPct)
	assert.Equal(t, 7.5, s.PMStartPctNoDCA)
	assert.Equal(t, 1.25, s.TrailingGapPct)
}

// TestLoad_TradeStartLevelClamped clamps to the 1-7 signal range
func TestLoad_TradeStartLevelClamped(t *testing.T) {
	s := Load(writeSettings(t, `{"trade_start_level": 12}`))
	assert.Equal(t, 7, s.TradeStartLevel)

	s = Load(writeSettings(t, `{"trade_start_level": 0}`))
	assert.Equal(t, 1, s.TradeStartLevel)

	s = Load(writeSettings(t, `{"trade_start_level": -3}`))
	assert.Equal(t, 1, s.TradeStartLevel)
}

// TestLoad_MaxDCANonNegative floors the DCA rate limit at zero
func TestLoad_MaxDCANonNegative(t *testing.T) {
	s := Load(writeSettings(t, `{"max_dca_buys_per_24h": -5}`))
	assert.Equal(t, 0, s.MaxDCABuysPer24h)
}

// TestLoad_Coins normalizes case and falls back when empty
func TestLoad_Coins(t *testing.T) {
	s := Load(writeSettings(t, `{"coins": ["btc", " eth ", ""]}`))
	assert.Equal(t, []string{"BTC", "ETH"}, s.Coins)

	s = Load(writeSettings(t, `{"coins": []}`))
	assert.Equal(t, DefaultCoins, s.Coins)
}

// TestLoad_BadDCALevels reverts to the default ladder on any bad entry
func TestLoad_BadDCALevels(t *testing.T) {
	s := Load(writeSettings(t, `{"dca_levels": [-2.5, "oops", -10]}`))
	assert.Equal(t, DefaultDCALevels, s.DCALevels)
}

// TestValidate_Warnings flags unusable values without failing
func TestValidate_Warnings(t *testing.T) {
	s := Default()
	assert.Empty(t, s.Validate())

	s.Coins = nil
	s.StartAllocationPct = 0
	warns := s.Validate()
	assert.Len(t, warns, 2)
}
