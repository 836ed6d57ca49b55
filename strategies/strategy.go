package strategies

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rustyeddy/stocksim/market"
	"github.com/rustyeddy/stocksim/risk"
	"github.com/rustyeddy/stocksim/sim"
)

// Trader is the part of the account a strategy may use. *sim.AccountManager
// implements it.
type Trader interface {
	Buy(req sim.OrderRequest) *sim.Entrust
	Sell(req sim.OrderRequest) *sim.Entrust
	ClosePos(at time.Time, code string, price float64, reason sim.SellReason, signal any, bar *market.Bar) *sim.Entrust

	Cash() float64
	CurCapital() float64
	CurCodePosAvail(code string) int64
	CurCodePosMarketValue(code string) float64
	HeldCodes() []string
}

var _ Trader = (*sim.AccountManager)(nil)

// Strategy is driven by the backtest runner once per event, after the
// account has matched entrusts and run its exit policies.
type Strategy interface {
	Tag() sim.StrategyTag
	OnOpen(ctx context.Context, day time.Time) error
	OnTicks(ctx context.Context, t Trader, ticks map[string]market.Tick) error
	OnBars(ctx context.Context, t Trader, bars map[string]market.Bar) error
}

// Params configures the built-in strategies.
type Params struct {
	Codes       []string
	Granularity market.Granularity
	// PositionPct is the share of capital, in percent, put into each buy.
	PositionPct float64
	Slippage    float64
	Fees        market.Fees
	Policy      risk.Policy

	// ma-cross and ema-cross
	Fast int
	Slow int
}

func ByName(name string, p Params) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "noop", "none", "":
		return Noop{Granularity: p.Granularity}, nil

	case "open-once":
		return NewOpenOnce(p), nil

	case "ma-cross", "macross":
		return NewMACross(p)

	case "ema-cross", "emacross":
		return NewEMACross(p)

	default:
		return nil, fmt.Errorf("unknown strategy %q (supported: noop, open-once, ma-cross, ema-cross)", name)
	}
}

// sortedKeys returns the codes of an event in order so strategies submit
// orders deterministically.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// buyer sizes and submits buys under a risk policy.
type buyer struct {
	tag         sim.StrategyTag
	positionPct float64
	slippage    float64
	fees        market.Fees
	policy      risk.Policy
}

func (b buyer) buy(t Trader, at time.Time, code, name string, price float64, bar *market.Bar) *sim.Entrust {
	price = market.ApplySlippage(market.Buy, price, b.slippage)
	size := risk.Calculate(risk.Inputs{
		Code:        code,
		Price:       price,
		Capital:     t.CurCapital(),
		Cash:        t.Cash(),
		PositionPct: b.positionPct,
		Fees:        b.fees,
	})
	if size.Volume == 0 {
		return nil
	}

	held := t.CurCodePosMarketValue(code)
	d := risk.Evaluate(b.policy, risk.TradeIntent{
		Now:    at,
		Code:   code,
		Price:  price,
		Volume: size.Volume,
		Cost:   size.TradeCost,
	}, risk.AccountSnapshot{
		Cash:      t.Cash(),
		Capital:   t.CurCapital(),
		Positions: len(t.HeldCodes()),
		Held:      held > 0,
		HeldValue: held,
	})
	if !d.Allowed {
		return nil
	}

	return t.Buy(sim.OrderRequest{
		Time:     at,
		Strategy: b.tag,
		Code:     code,
		Name:     name,
		Price:    price,
		Volume:   size.Volume,
		Bar:      bar,
	})
}
