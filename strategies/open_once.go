package strategies

import (
	"context"
	"time"

	"github.com/rustyeddy/stocksim/market"
	"github.com/rustyeddy/stocksim/sim"
)

// OpenOnce buys each of its codes the first time it sees a quote and then
// leaves the position to the account's exit policies. With no codes it
// buys every code it is fed.
type OpenOnce struct {
	buyer
	codes  map[string]bool
	opened map[string]bool
}

func NewOpenOnce(p Params) *OpenOnce {
	s := &OpenOnce{
		buyer: buyer{
			tag:         sim.StrategyTag{Name: "open-once", Granularity: p.Granularity},
			positionPct: p.PositionPct,
			slippage:    p.Slippage,
			fees:        p.Fees,
			policy:      p.Policy,
		},
		opened: make(map[string]bool),
	}
	if s.positionPct <= 0 {
		s.positionPct = 10
	}
	if len(p.Codes) > 0 {
		s.codes = make(map[string]bool, len(p.Codes))
		for _, c := range p.Codes {
			s.codes[c] = true
		}
	}
	return s
}

func (s *OpenOnce) Tag() sim.StrategyTag { return s.tag }

func (s *OpenOnce) OnOpen(context.Context, time.Time) error { return nil }

func (s *OpenOnce) wants(code string) bool {
	if s.opened[code] {
		return false
	}
	return s.codes == nil || s.codes[code]
}

func (s *OpenOnce) OnTicks(_ context.Context, t Trader, ticks map[string]market.Tick) error {
	for _, code := range sortedKeys(ticks) {
		if !s.wants(code) {
			continue
		}
		tk := ticks[code]
		if s.buy(t, tk.Time, code, tk.Name, tk.Price, nil) != nil {
			s.opened[code] = true
		}
	}
	return nil
}

func (s *OpenOnce) OnBars(_ context.Context, t Trader, bars map[string]market.Bar) error {
	for _, code := range sortedKeys(bars) {
		if !s.wants(code) {
			continue
		}
		b := bars[code]
		if s.buy(t, b.Time, code, b.Name, b.Close, &b) != nil {
			s.opened[code] = true
		}
	}
	return nil
}
