package sim

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/stocksim/market"
)

// ExitPolicy inspects the account on every event and may close positions.
// Policies never change account state themselves; they only submit sells
// through ClosePos.
type ExitPolicy interface {
	OnOpen(ctx context.Context, day time.Time) error
	OnTicks(ticks map[string]market.Tick)
	OnBars(bars map[string]market.Bar)
}

// NoopPolicy is installed in every slot without a configured policy.
type NoopPolicy struct{}

func (NoopPolicy) OnOpen(context.Context, time.Time) error { return nil }
func (NoopPolicy) OnTicks(map[string]market.Tick)          {}
func (NoopPolicy) OnBars(map[string]market.Bar)            {}

// accountView is what exit policies may see and do.
type accountView interface {
	HeldCodes() []string
	Position(code string) (Position, bool)
	ClosePos(at time.Time, code string, price float64, reason SellReason, signal any, bar *market.Bar) *Entrust
}

// Policy names accepted in StopSetting.Name.
const (
	PolicyNone          = "none"
	PolicyFixed         = "fixed"
	PolicyMovingAverage = "movingAverage"
	PolicyLadder        = "ladder"
)

// quote is the price of one held code in the current event.
type quote struct {
	at    time.Time
	price float64
	pre   float64
	bar   *market.Bar
}

// sellable calls fn for each held code with available volume and a quote in
// the current event, in code order.
func sellable(acct accountView, quoteOf func(code string) (quote, bool), fn func(pos Position, q quote)) {
	for _, code := range acct.HeldCodes() {
		pos, ok := acct.Position(code)
		if !ok || pos.AvailVolume <= 0 {
			continue
		}
		q, ok := quoteOf(code)
		if !ok {
			continue
		}
		fn(pos, q)
	}
}

func tickQuotes(ticks map[string]market.Tick) func(string) (quote, bool) {
	return func(code string) (quote, bool) {
		t, ok := ticks[code]
		if !ok {
			return quote{}, false
		}
		return quote{at: t.Time, price: t.Price, pre: t.PreClose}, true
	}
}

func barQuotes(bars map[string]market.Bar) func(string) (quote, bool) {
	return func(code string) (quote, bool) {
		b, ok := bars[code]
		if !ok {
			return quote{}, false
		}
		return quote{at: b.Time, price: b.Close, pre: b.PreClose, bar: &b}, true
	}
}

// policyFunc adapts a per-position check into an ExitPolicy without daily
// state.
type policyFunc struct {
	acct  accountView
	check func(pos Position, q quote)
}

func (p policyFunc) OnOpen(context.Context, time.Time) error { return nil }

func (p policyFunc) OnTicks(ticks map[string]market.Tick) {
	sellable(p.acct, tickQuotes(ticks), p.check)
}

func (p policyFunc) OnBars(bars map[string]market.Bar) {
	sellable(p.acct, barQuotes(bars), p.check)
}

func isNone(name string) bool {
	n := strings.TrimSpace(name)
	return n == "" || strings.EqualFold(n, PolicyNone)
}

func wantParams(slot string, s StopSetting, n int) error {
	if len(s.Params) != n {
		return fmt.Errorf("sim: %s policy %q needs %d params, got %d", slot, s.Name, n, len(s.Params))
	}
	return nil
}

func newStopLoss(s StopSetting, acct accountView, data DayProvider) (ExitPolicy, error) {
	switch {
	case isNone(s.Name):
		return NoopPolicy{}, nil
	case strings.EqualFold(s.Name, PolicyFixed):
		if err := wantParams("stop-loss", s, 1); err != nil {
			return nil, err
		}
		return newFixedStopLoss(acct, s.Params[0]), nil
	case strings.EqualFold(s.Name, PolicyMovingAverage):
		if err := wantParams("stop-loss", s, 1); err != nil {
			return nil, err
		}
		return newMAStop(acct, data, int(s.Params[0]), SellStopLoss, 0, false)
	case strings.EqualFold(s.Name, PolicyLadder):
		if err := wantParams("stop-loss", s, 3); err != nil {
			return nil, err
		}
		return newLadderStopLoss(acct, s.Params[0], s.Params[1], s.Params[2])
	default:
		return nil, fmt.Errorf("sim: unknown stop-loss policy %q", s.Name)
	}
}

func newStopProfit(s StopSetting, acct accountView, data DayProvider) (ExitPolicy, error) {
	switch {
	case isNone(s.Name):
		return NoopPolicy{}, nil
	case strings.EqualFold(s.Name, PolicyFixed):
		if err := wantParams("stop-profit", s, 1); err != nil {
			return nil, err
		}
		return newFixedStopProfit(acct, s.Params[0]), nil
	case strings.EqualFold(s.Name, PolicyMovingAverage):
		if err := wantParams("stop-profit", s, 2); err != nil {
			return nil, err
		}
		return newMAStop(acct, data, int(s.Params[0]), SellStopProfit, s.Params[1], true)
	default:
		return nil, fmt.Errorf("sim: unknown stop-profit policy %q", s.Name)
	}
}

func newStopTime(s StopSetting, acct accountView) (ExitPolicy, error) {
	switch {
	case isNone(s.Name):
		return NoopPolicy{}, nil
	case strings.EqualFold(s.Name, PolicyFixed):
		if err := wantParams("stop-time", s, 2); err != nil {
			return nil, err
		}
		return newStopTimePolicy(acct, int(s.Params[0]), s.Params[1]), nil
	default:
		return nil, fmt.Errorf("sim: unknown stop-time policy %q", s.Name)
	}
}
