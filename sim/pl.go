package sim

// pnlRatio returns the percentage P&L of price against cost.
func pnlRatio(price, cost float64) float64 {
	if cost == 0 {
		return 0
	}
	return (price - cost) / cost * 100
}

// realizedPL is the P&L of closing volume shares bought at cost, net of the
// closing trade cost.
func realizedPL(price, cost float64, volume int64, tradeCost float64) float64 {
	return (price-cost)*float64(volume) - tradeCost
}
