package types

// Position tracks one open coin holding: cost basis, DCA history and
// trailing take-profit state. The trader mutates it in place as prices
// move and fills happen.
type Position struct {
	Coin          string
	EntryPrice    float64
	Quantity      float64
	CostBasisUSD  float64
	DCACount      int
	DCATimestamps []float64

	TrailingActive bool
	TrailingPeak   float64
	TrailingLine   float64
	// WasAboveLine is the previous tick's "price at or above the
	// trailing line" observation. Exit decisions read it before it is
	// refreshed for the current tick.
	WasAboveLine bool
}

// AvgPrice returns the average cost per unit, 0 for an empty position.
func (p *Position) AvgPrice() float64 {
	if p.Quantity == 0 {
		return 0
	}
	return p.CostBasisUSD / p.Quantity
}

func (p *Position) HasDCA() bool { return p.DCACount > 0 }

// PnlPct returns the unrealised PnL percentage at the given price.
func (p *Position) PnlPct(price float64) float64 {
	avg := p.AvgPrice()
	if avg == 0 {
		return 0
	}
	return (price - avg) / avg * 100
}

// MarketValue returns the quote-currency value at the given price.
func (p *Position) MarketValue(price float64) float64 {
	return p.Quantity * price
}

// ResetTrailing clears all trailing state. Called on every buy and
// after an exit.
func (p *Position) ResetTrailing() {
	p.TrailingActive = false
	p.TrailingPeak = 0
	p.TrailingLine = 0
	p.WasAboveLine = false
}
