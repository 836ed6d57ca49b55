package sim

// newFixedStopLoss closes a position once its P&L ratio falls to ratio
// percent (e.g. -5).
func newFixedStopLoss(acct accountView, ratio float64) ExitPolicy {
	return policyFunc{acct: acct, check: func(pos Position, q quote) {
		if pnlRatio(q.price, pos.Cost) <= ratio {
			acct.ClosePos(q.at, pos.Code, q.price, SellStopLoss, nil, q.bar)
		}
	}}
}

// newFixedStopProfit closes a position once its P&L ratio reaches ratio
// percent.
func newFixedStopProfit(acct accountView, ratio float64) ExitPolicy {
	return policyFunc{acct: acct, check: func(pos Position, q quote) {
		if pnlRatio(q.price, pos.Cost) >= ratio {
			acct.ClosePos(q.at, pos.Code, q.price, SellStopProfit, nil, q.bar)
		}
	}}
}
