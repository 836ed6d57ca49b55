package risk

import "time"

type Policy struct {
	// Exposure limits
	MaxPositions   int     // 0 means unlimited
	MaxPositionPct float64 // of capital, in percent; 0 means unlimited

	// MinCashPct keeps this share of capital (in percent) uninvested.
	MinCashPct float64
}

func DefaultPolicy() Policy {
	return Policy{
		MaxPositions:   10,
		MaxPositionPct: 20,
	}
}

type TradeIntent struct {
	Now    time.Time
	Code   string
	Price  float64
	Volume int64
	Cost   float64 // trade cost of the buy
}

type AccountSnapshot struct {
	Cash    float64
	Capital float64

	// Positions counts held codes; Held is set when Code is one of them.
	Positions int
	Held      bool
	// HeldValue is the market value already held in Code.
	HeldValue float64
}
