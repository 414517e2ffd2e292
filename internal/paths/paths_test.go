package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewCoinPaths_BTCAtRoot keeps BTC files in the base directory
func TestNewCoinPaths_BTCAtRoot(t *testing.T) {
	base := t.TempDir()
	cp := NewCoinPaths(base, "btc")

	assert.Equal(t, "BTC", cp.Coin)
	assert.Equal(t, base, cp.Base)
	assert.Equal(t, filepath.Join(base, "memories_1hour.txt"), cp.MemoryFile("1hour"))
	assert.Equal(t, filepath.Join(base, "BTC_current_price.txt"), cp.CurrentPrice())
}

// TestNewCoinPaths_AltCoinSubfolder nests other coins under the base
func TestNewCoinPaths_AltCoinSubfolder(t *testing.T) {
	base := t.TempDir()
	cp := NewCoinPaths(base, " eth ")

	assert.Equal(t, "ETH", cp.Coin)
	assert.Equal(t, filepath.Join(base, "ETH"), cp.Base)
	assert.Equal(t, filepath.Join(base, "ETH", "memory_weights_high_4hour.txt"), cp.WeightHighFile("4hour"))
	assert.Equal(t, filepath.Join(base, "ETH", "long_dca_signal.txt"), cp.SignalLong())
}

// TestBuildCoinPaths_SkipsMissingFolders excludes unprepared alt coins
func TestBuildCoinPaths_SkipsMissingFolders(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "ETH"), 0o755))

	out := BuildCoinPaths(base, []string{"BTC", "ETH", "XRP"}, false)

	assert.Contains(t, out, "BTC")
	assert.Contains(t, out, "ETH")
	assert.NotContains(t, out, "XRP")
}

// TestBuildCoinPaths_CreateMissing creates folders when asked
func TestBuildCoinPaths_CreateMissing(t *testing.T) {
	base := t.TempDir()
	out := BuildCoinPaths(base, []string{"XRP"}, true)

	require.Contains(t, out, "XRP")
	info, err := os.Stat(filepath.Join(base, "XRP"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

// TestBuildCoinPaths_NormalizesInput trims and uppercases coin names
func TestBuildCoinPaths_NormalizesInput(t *testing.T) {
	base := t.TempDir()
	out := BuildCoinPaths(base, []string{" btc ", ""}, false)
	assert.Contains(t, out, "BTC")
	assert.Len(t, out, 1)
}
