package exchange

import (
	"math"
	"strconv"
	"strings"
)

// FloorToStep floors quantity down to a multiple of stepSize and
// formats it with the step's precision. It returns "" when the result
// falls below minQty. The arithmetic runs on integer step counts so
// float noise can never round a quantity up past what the venue
// accepts.
func FloorToStep(quantity float64, stepSize, minQty string) string {
	step, err := strconv.ParseFloat(stepSize, 64)
	if err != nil || step <= 0 {
		return ""
	}
	min, err := strconv.ParseFloat(minQty, 64)
	if err != nil {
		min = 0
	}

	// Small epsilon rescues quantities like 0.29999999999 that are a
	// float artifact of an exact step multiple.
	steps := math.Floor(quantity/step + 1e-9)
	if steps <= 0 {
		return ""
	}
	rounded := steps * step
	if rounded < min {
		return ""
	}

	return strconv.FormatFloat(rounded, 'f', stepDecimals(stepSize), 64)
}

// stepDecimals counts the significant decimal places of a step string
// like "0.00100000" (3) or "1.00000000" (0).
func stepDecimals(stepSize string) int {
	idx := strings.IndexByte(stepSize, '.')
	if idx < 0 {
		return 0
	}
	frac := strings.TrimRight(stepSize[idx+1:], "0")
	return len(frac)
}
