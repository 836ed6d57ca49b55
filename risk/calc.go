package risk

import (
	"math"

	"github.com/rustyeddy/stocksim/market"
)

// Inputs size a buy of Code at Price. PositionPct is the share of Capital
// (in percent) to put into the position; Cash caps the result.
type Inputs struct {
	Code        string
	Price       float64
	Capital     float64
	Cash        float64
	PositionPct float64
	Fees        market.Fees
}

type Result struct {
	Volume    int64
	Amount    float64
	TradeCost float64
}

// TargetVolume is the number of whole board lots worth pct percent of
// capital at price.
func TargetVolume(capital, pct, price float64) int64 {
	if capital <= 0 || pct <= 0 || price <= 0 {
		return 0
	}
	lots := math.Floor(capital * pct / 100 / price / market.BoardLot)
	return int64(lots) * market.BoardLot
}

// LotVolume is the largest whole-lot volume of code whose notional plus
// trade cost fits in cash.
func LotVolume(cash, price float64, fees market.Fees, code string) int64 {
	if cash <= 0 || price <= 0 {
		return 0
	}
	v := int64(math.Floor(cash/price/market.BoardLot)) * market.BoardLot
	for v > 0 && price*float64(v)+fees.TradeCost(code, market.Buy, price, v) > cash {
		v -= market.BoardLot
	}
	return v
}

func Calculate(in Inputs) Result {
	v := TargetVolume(in.Capital, in.PositionPct, in.Price)
	if limit := LotVolume(in.Cash, in.Price, in.Fees, in.Code); v > limit {
		v = limit
	}
	if v <= 0 {
		return Result{}
	}
	return Result{
		Volume:    v,
		Amount:    in.Price * float64(v),
		TradeCost: in.Fees.TradeCost(in.Code, market.Buy, in.Price, v),
	}
}
