package strategies

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/stocksim/indicators"
	"github.com/rustyeddy/stocksim/market"
	"github.com/rustyeddy/stocksim/sim"
)

// MACross trades a fast/slow moving average crossover on bar closes.
// - Buys when the fast average crosses above the slow one
// - Sells the available volume on the opposite cross
type MACross struct {
	buyer
	kind       string
	fast, slow int
	codes      map[string]bool
	lines      map[string]*crossLines
}

// crossLines is the per-code indicator state.
type crossLines struct {
	fast, slow indicators.Indicator
	lastClose  float64
	lastDiff   float64
	hasDiff    bool
}

// NewMACross crosses simple moving averages.
func NewMACross(p Params) (*MACross, error) {
	return newCross("ma-cross", "sma", p)
}

// NewEMACross crosses exponential moving averages.
func NewEMACross(p Params) (*MACross, error) {
	return newCross("ema-cross", "ema", p)
}

func newCross(name, kind string, p Params) (*MACross, error) {
	if p.Fast <= 0 || p.Slow <= p.Fast {
		return nil, fmt.Errorf("%s needs 0 < fast < slow, got fast=%d slow=%d", name, p.Fast, p.Slow)
	}
	if p.Granularity == market.GranularityTick {
		return nil, fmt.Errorf("%s trades bars, not ticks", name)
	}
	s := &MACross{
		buyer: buyer{
			tag:         sim.StrategyTag{Name: name, Granularity: p.Granularity},
			positionPct: p.PositionPct,
			slippage:    p.Slippage,
			fees:        p.Fees,
			policy:      p.Policy,
		},
		kind:  kind,
		fast:  p.Fast,
		slow:  p.Slow,
		lines: make(map[string]*crossLines),
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
	return s, nil
}

func (s *MACross) Tag() sim.StrategyTag { return s.tag }

func (s *MACross) OnOpen(context.Context, time.Time) error { return nil }

func (s *MACross) OnTicks(context.Context, Trader, map[string]market.Tick) error { return nil }

func (s *MACross) OnBars(_ context.Context, t Trader, bars map[string]market.Bar) error {
	for _, code := range sortedKeys(bars) {
		if s.codes != nil && !s.codes[code] {
			continue
		}
		b := bars[code]
		s.observe(t, code, b)
	}
	return nil
}

func (s *MACross) linesFor(code string) *crossLines {
	l, ok := s.lines[code]
	if !ok {
		fast, _ := indicators.New(s.kind, s.fast)
		slow, _ := indicators.New(s.kind, s.slow)
		l = &crossLines{fast: fast, slow: slow}
		s.lines[code] = l
	}
	return l
}

func (s *MACross) observe(t Trader, code string, b market.Bar) {
	l := s.linesFor(code)

	// ex-rights day: bring the history onto the new price basis
	if l.lastClose > 0 && b.PreClose > 0 && math.Abs(b.PreClose-l.lastClose) >= 0.005 {
		ratio := b.PreClose / l.lastClose
		l.fast.Rescale(ratio)
		l.slow.Rescale(ratio)
	}
	l.lastClose = b.Close
	l.fast.Update(b)
	l.slow.Update(b)
	if !l.slow.Ready() || !l.fast.Ready() {
		return
	}

	diff := l.fast.Value() - l.slow.Value()
	prev, ok := l.lastDiff, l.hasDiff
	l.lastDiff, l.hasDiff = diff, true
	if !ok {
		return
	}

	switch {
	case prev <= 0 && diff > 0:
		if t.CurCodePosMarketValue(code) == 0 {
			s.buy(t, b.Time, code, b.Name, b.Close, &b)
		}
	case prev >= 0 && diff < 0:
		if t.CurCodePosAvail(code) > 0 {
			price := market.ApplySlippage(market.Sell, b.Close, s.slippage)
			t.ClosePos(b.Time, code, price, sim.SellStrategy, s.signal(), &b)
		}
	}
}

func (s *MACross) signal() string {
	prefix := "ma"
	if s.kind == "ema" {
		prefix = "ema"
	}
	return fmt.Sprintf("%s%d<%s%d", prefix, s.fast, prefix, s.slow)
}
