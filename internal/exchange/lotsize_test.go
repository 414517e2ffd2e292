package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestFloorToStep_FloorsDown never rounds a quantity up
func TestFloorToStep_FloorsDown(t *testing.T) {
	assert.Equal(t, "0.001", FloorToStep(0.0019, "0.00100000", "0.00100000"))
	assert.Equal(t, "1.234", FloorToStep(1.23456, "0.00100000", "0.00100000"))
	assert.Equal(t, "5", FloorToStep(5.9, "1.00000000", "1.00000000"))
}

// TestFloorToStep_FloatNoise recovers exact multiples hit by float artifacts
func TestFloorToStep_FloatNoise(t *testing.T) {
	assert.Equal(t, "0.300", FloorToStep(0.3, "0.00100000", "0.00100000"))
	assert.Equal(t, "0.100", FloorToStep(0.1, "0.00100000", "0.00100000"))
}

// TestFloorToStep_BelowMin returns empty for unsellable dust
func TestFloorToStep_BelowMin(t *testing.T) {
	assert.Equal(t, "", FloorToStep(0.0005, "0.00100000", "0.00100000"))
	assert.Equal(t, "", FloorToStep(0, "0.00100000", "0.00100000"))
	assert.Equal(t, "", FloorToStep(-1, "0.00100000", "0.00100000"))
}

// TestFloorToStep_BadStep returns empty on unusable filters
func TestFloorToStep_BadStep(t *testing.T) {
	assert.Equal(t, "", FloorToStep(1, "", "0"))
	assert.Equal(t, "", FloorToStep(1, "0", "0"))
}

// TestStepDecimals counts significant fractional digits
func TestStepDecimals(t *testing.T) {
	assert.Equal(t, 3, stepDecimals("0.00100000"))
	assert.Equal(t, 0, stepDecimals("1.00000000"))
	assert.Equal(t, 0, stepDecimals("1"))
	assert.Equal(t, 8, stepDecimals("0.00000001"))
}

// TestToSymbol_FromSymbol round-trips coin symbols
func TestToSymbol_FromSymbol(t *testing.T) {
	assert.Equal(t, "BTCUSDT", ToSymbol("btc"))
	assert.Equal(t, "BTC", FromSymbol("BTCUSDT"))
	assert.Equal(t, "DOGE", FromSymbol("DOGEUSDT"))
}
