package sim

import "github.com/rustyeddy/stocksim/market"

// matchTick fills an entrust only when the tick trades strictly through its
// limit: the order would have executed at a better price than quoted.
func matchTick(e *Entrust, t market.Tick) bool {
	if e.Type == market.Buy {
		return t.Price < e.Price
	}
	return t.Price > e.Price
}

// matchDailyBar uses whole-day semantics: a buy fills unless the day closed
// limit-up, a sell fills unless it closed limit-down.
func matchDailyBar(e *Entrust, b market.Bar, l market.Limits) bool {
	pct := b.PctChange()
	if e.Type == market.Buy {
		return !l.IsLimitUp(e.Code, pct)
	}
	return !l.IsLimitDown(e.Code, pct)
}

// matchIntradayBar uses price crossing. Touching the limit price is only
// enough when the bar is a single-price bar locked at limit-down (buys) or
// limit-up (sells): the whole bar traded at that price.
func matchIntradayBar(e *Entrust, b market.Bar, l market.Limits) bool {
	pct := b.PctChange()
	if e.Type == market.Buy {
		if b.Low < e.Price {
			return true
		}
		return b.Low == e.Price && b.Degenerate() && l.IsLimitDown(e.Code, pct)
	}

	if b.High > e.Price {
		return true
	}
	return b.High == e.Price && b.Degenerate() && l.IsLimitUp(e.Code, pct)
}

func matchBar(e *Entrust, b market.Bar, l market.Limits) bool {
	if e.Granularity() == market.GranularityDaily {
		return matchDailyBar(e, b, l)
	}
	return matchIntradayBar(e, b, l)
}
