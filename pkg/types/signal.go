package types

// Signal level bounds. 0 means no signal, 7 means every timeframe
// agrees.
const (
	SignalMin = 0
	SignalMax = 7
)

// Signal is one snapshot of the signal engine output for a coin: how
// many predicted boundary levels the current price has broken through
// on each side, plus the per-timeframe boundary prices and aggregated
// profit-margin hints.
type Signal struct {
	Coin        string
	LongLevel   int
	ShortLevel  int
	LongBounds  []float64 // per-timeframe low boundaries (supports)
	ShortBounds []float64 // per-timeframe high boundaries (resistances)
	LongPM      float64
	ShortPM     float64
	Timestamp   float64
}
