package pattern

// Timeframes is the canonical ordering used everywhere patterns are
// trained, matched or written out. File suffixes, bound files and
// signal level counting all follow this order.
var Timeframes = []string{
	"1hour",
	"2hour",
	"4hour",
	"8hour",
	"12hour",
	"1day",
	"1week",
}

// TimeframeMinutes maps each timeframe to its candle duration.
var TimeframeMinutes = map[string]int{
	"1hour":  60,
	"2hour":  120,
	"4hour":  240,
	"8hour":  480,
	"12hour": 720,
	"1day":   1440,
	"1week":  10080,
}

// NumTimeframes is the number of boundary levels per side.
const NumTimeframes = 7
