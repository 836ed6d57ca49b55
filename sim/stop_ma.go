package sim

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/stocksim/indicators"
	"github.com/rustyeddy/stocksim/market"
)

// maStop closes a position when the price drops below the n-day moving
// average of closes. As a stop-profit it only arms once the position's
// best P&L ratio has reached hasRun percent.
type maStop struct {
	acct    accountView
	data    DayProvider
	n       int
	reason  SellReason
	hasRun  float64
	needRun bool

	closes map[string][]float64
}

func newMAStop(acct accountView, data DayProvider, n int, reason SellReason, hasRun float64, needRun bool) (ExitPolicy, error) {
	if n < 1 {
		return nil, fmt.Errorf("sim: moving average period must be at least 1, got %d", n)
	}
	if data == nil && n > 1 {
		return nil, fmt.Errorf("sim: moving average policy needs a day provider")
	}
	return &maStop{
		acct:    acct,
		data:    data,
		n:       n,
		reason:  reason,
		hasRun:  hasRun,
		needRun: needRun,
		closes:  make(map[string][]float64),
	}, nil
}

// OnOpen loads the n-1 closes before day for every held code.
func (s *maStop) OnOpen(ctx context.Context, day time.Time) error {
	s.closes = make(map[string][]float64)
	if s.n == 1 {
		return nil
	}

	from, err := s.data.TradeDayOffset(day, -(s.n - 1))
	if err != nil {
		return err
	}
	to, err := s.data.TradeDayOffset(day, -1)
	if err != nil {
		return err
	}

	for _, code := range s.acct.HeldCodes() {
		if err := s.data.LoadCode(ctx, code, from, to); err != nil {
			return fmt.Errorf("load %s: %w", code, err)
		}
		bars, ok := s.data.DayBars(code)
		if !ok {
			return fmt.Errorf("no bars for %s", code)
		}
		window := indicators.Closes(barsBetween(bars, from, to))
		if len(window) < s.n-1 {
			return fmt.Errorf("%s has %d of %d closes for MA(%d)", code, len(window), s.n-1, s.n)
		}
		s.closes[code] = window
	}
	return nil
}

func (s *maStop) OnTicks(ticks map[string]market.Tick) {
	sellable(s.acct, tickQuotes(ticks), s.check)
}

func (s *maStop) OnBars(bars map[string]market.Bar) {
	sellable(s.acct, barQuotes(bars), s.check)
}

func (s *maStop) check(pos Position, q quote) {
	if _, ok := s.closes[pos.Code]; !ok && s.n > 1 {
		return
	}
	if s.needRun && pos.MaxPnlRatio < s.hasRun {
		return
	}

	s.rebase(pos.Code, q.pre)
	ma, err := indicators.SMAWith(s.closes[pos.Code], q.price, s.n)
	if err != nil {
		return
	}
	if q.price < ma {
		s.acct.ClosePos(q.at, pos.Code, q.price, s.reason, nil, q.bar)
	}
}

// rebase rescales the cached closes when the exchange's previous close
// disagrees with the cached tail, i.e. an ex-rights event happened.
func (s *maStop) rebase(code string, preClose float64) {
	closes := s.closes[code]
	if len(closes) == 0 || preClose <= 0 {
		return
	}
	tail := closes[len(closes)-1]
	if tail <= 0 || math.Abs(preClose-tail) < market.PriceTick/2 {
		return
	}
	indicators.Rescale(closes, preClose/tail)
}
