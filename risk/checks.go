package risk

import (
	"fmt"

	"github.com/rustyeddy/stocksim/market"
)

type Violation struct {
	Code string
	Msg  string
}

type Decision struct {
	Allowed    bool
	Violations []Violation

	Amount      float64
	PositionPct float64
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Evaluate checks a buy intent against the policy.
func Evaluate(p Policy, intent TradeIntent, acct AccountSnapshot) Decision {
	d := Decision{Allowed: true}

	if intent.Price <= 0 {
		d.add("NO_PRICE", "price must be positive")
		return d
	}
	if intent.Volume < market.BoardLot || intent.Volume%market.BoardLot != 0 {
		d.add("ODD_LOT", fmt.Sprintf("volume %d is not a whole board lot", intent.Volume))
		return d
	}

	d.Amount = intent.Price * float64(intent.Volume)
	if acct.Capital > 0 {
		d.PositionPct = (acct.HeldValue + d.Amount) / acct.Capital * 100
	}

	if p.MaxPositions > 0 && !acct.Held && acct.Positions >= p.MaxPositions {
		d.add("TOO_MANY_POSITIONS",
			fmt.Sprintf("positions %d >= max %d", acct.Positions, p.MaxPositions))
	}
	if p.MaxPositionPct > 0 && d.PositionPct > p.MaxPositionPct {
		d.add("POSITION_TOO_LARGE",
			fmt.Sprintf("position %.2f%% exceeds max %.2f%%", d.PositionPct, p.MaxPositionPct))
	}

	left := acct.Cash - d.Amount - intent.Cost
	if left < 0 {
		d.add("INSUFFICIENT_CASH", fmt.Sprintf("need %.2f, have %.2f", d.Amount+intent.Cost, acct.Cash))
	} else if p.MinCashPct > 0 && acct.Capital > 0 && left/acct.Capital*100 < p.MinCashPct {
		d.add("CASH_RESERVE",
			fmt.Sprintf("cash after buy %.2f%% below reserve %.2f%%", left/acct.Capital*100, p.MinCashPct))
	}

	return d
}
