package sim

import (
	"fmt"
	"math"
)

// LadderStopPrice is the active stop of a ladder stop-loss. The stop starts
// at cost*m and is raised by a factor (1+y) for every full step of width x
// the high-water mark has climbed above cost.
func LadderStopPrice(cost, high, m, x, y float64) float64 {
	steps := 0.0
	if cost > 0 && high > cost {
		steps = math.Floor(math.Log(high/cost) / math.Log(1+x))
	}
	return cost * m * math.Pow(1+y, steps)
}

func newLadderStopLoss(acct accountView, m, x, y float64) (ExitPolicy, error) {
	if m <= 0 || x <= 0 || y < 0 {
		return nil, fmt.Errorf("sim: invalid ladder params m=%v x=%v y=%v", m, x, y)
	}
	return policyFunc{acct: acct, check: func(pos Position, q quote) {
		high := math.Max(pos.High, q.price)
		if q.price < LadderStopPrice(pos.Cost, high, m, x, y) {
			acct.ClosePos(q.at, pos.Code, q.price, SellStopLoss, nil, q.bar)
		}
	}}, nil
}
