package sim

// newStopTimePolicy closes positions held at least days trading days whose
// P&L ratio is at least minRatio. Losing positions are left to the stop-loss.
func newStopTimePolicy(acct accountView, days int, minRatio float64) ExitPolicy {
	return policyFunc{acct: acct, check: func(pos Position, q quote) {
		if pos.HoldingPeriod >= days && pnlRatio(q.price, pos.Cost) >= minRatio {
			acct.ClosePos(q.at, pos.Code, q.price, SellStopTime, nil, q.bar)
		}
	}}
}
