package market

import "github.com/shopspring/decimal"

// PriceTick is the minimum price increment on the exchange.
const PriceTick = 0.01

// RoundPrice rounds x to the exchange price tick.
func RoundPrice(x float64) float64 {
	return decimal.NewFromFloat(x).Round(2).InexactFloat64()
}

// PctChange returns the percentage move of price against preClose, or 0 when
// preClose is unknown.
func PctChange(price, preClose float64) float64 {
	if preClose <= 0 {
		return 0
	}
	return (price - preClose) / preClose * 100
}

// ApplySlippage moves price against the trader by pct percent: buys get more
// expensive, sells cheaper.
func ApplySlippage(side Side, price, pct float64) float64 {
	if pct == 0 {
		return price
	}
	if side == Buy {
		return RoundPrice(price * (1 + pct/100))
	}
	return RoundPrice(price * (1 - pct/100))
}
