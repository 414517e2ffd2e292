package exchange

import "strings"

// QuoteAsset is the quote currency for every traded pair.
const QuoteAsset = "USDT"

// ToSymbol converts a coin ticker to the venue pair symbol:
// "BTC" -> "BTCUSDT". Binance and Bybit share this format.
func ToSymbol(coin string) string {
	return strings.ToUpper(strings.TrimSpace(coin)) + QuoteAsset
}

// FromSymbol strips the quote asset: "BTCUSDT" -> "BTC". Symbols not
// quoted in USDT are returned unchanged.
func FromSymbol(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if strings.HasSuffix(symbol, QuoteAsset) && len(symbol) > len(QuoteAsset) {
		return strings.TrimSuffix(symbol, QuoteAsset)
	}
	return symbol
}
