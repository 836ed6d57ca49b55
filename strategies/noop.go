package strategies

import (
	"context"
	"time"

	"github.com/rustyeddy/stocksim/market"
	"github.com/rustyeddy/stocksim/sim"
)

// Noop does nothing. Runs with it only exercise the exit policies on
// positions restored from elsewhere.
type Noop struct {
	Granularity market.Granularity
}

func (n Noop) Tag() sim.StrategyTag {
	return sim.StrategyTag{Name: "noop", Granularity: n.Granularity}
}

func (Noop) OnOpen(context.Context, time.Time) error                       { return nil }
func (Noop) OnTicks(context.Context, Trader, map[string]market.Tick) error { return nil }
func (Noop) OnBars(context.Context, Trader, map[string]market.Bar) error   { return nil }
