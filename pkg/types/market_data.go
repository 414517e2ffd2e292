package types

import "time"

// Candle is a single OHLCV candle in ascending exchange time.
type Candle struct {
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Timestamp time.Time
}
