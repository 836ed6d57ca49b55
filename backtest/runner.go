// Package backtest replays market data through a simulated account and a
// strategy, one trading day at a time.
package backtest

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/stocksim/internal/logging"
	"github.com/rustyeddy/stocksim/journal"
	"github.com/rustyeddy/stocksim/market"
	"github.com/rustyeddy/stocksim/sim"
	"github.com/rustyeddy/stocksim/strategies"
)

// RunnerOptions controls how the runner behaves.
type RunnerOptions struct {
	// If true, every position is liquidated on the last event of the feed.
	// Shares still locked by T+1 stay in the account.
	CloseEnd bool
}

// Runner drives an account forward using a feed and strategy. Each Runner
// owns its account; runs share nothing but the read-only data provider.
type Runner struct {
	RunID    string
	Account  *sim.AccountManager
	Feed     Feed
	Strategy strategies.Strategy
	Journal  journal.Journal
	Log      logrus.FieldLogger
	Options  RunnerOptions
}

// Run executes the day loop. For each trading day in the feed:
//  1. account.OnOpen, then strategy.OnOpen
//  2. for every event: account heartbeat, then the strategy
//  3. account.OnClose, then journal the day's deals and snapshot
//
// A day the account aborts is skipped entirely and counted in the result.
// Cancellation is checked between days.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if r.Account == nil {
		return Result{}, errors.New("backtest: Account is required")
	}
	if r.Feed == nil {
		return Result{}, errors.New("backtest: Feed is required")
	}
	if r.Strategy == nil {
		return Result{}, errors.New("backtest: Strategy is required")
	}
	defer r.Feed.Close()

	d := &dayLoop{Runner: r, j: r.Journal, log: r.Log}
	if d.j == nil {
		d.j = journal.Nop{}
	}
	if d.log == nil {
		d.log = logging.Discard()
	}
	d.log = d.log.WithField("run", r.RunID)
	d.res = newResult(r.RunID, r.Account.InitCash())

	for {
		ev, ok, err := r.Feed.Next()
		if err != nil {
			return d.res, errors.Wrap(err, "backtest: feed")
		}
		if !ok {
			break
		}
		if err := d.handle(ctx, ev); err != nil {
			return d.res, err
		}
	}

	if d.open && !d.skip {
		if r.Options.CloseEnd {
			d.liquidate()
		}
		if err := d.closeDay(); err != nil {
			return d.res, err
		}
	}
	return d.res, nil
}

type dayLoop struct {
	*Runner
	j   journal.Journal
	log logrus.FieldLogger
	res Result

	day  time.Time
	open bool // a day is in progress
	skip bool // the day in progress was aborted
	last Event
}

func (d *dayLoop) handle(ctx context.Context, ev Event) error {
	day := tradeDay(ev.Time)
	if !d.open || !day.Equal(d.day) {
		if d.open && !d.skip {
			if err := d.closeDay(); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.openDay(ctx, day); err != nil {
			return err
		}
	}
	if d.skip {
		return nil
	}

	if len(ev.Ticks) > 0 {
		d.Account.OnTicks(ev.Ticks)
		if err := d.Strategy.OnTicks(ctx, d.Account, ev.Ticks); err != nil {
			return errors.Wrapf(err, "strategy %s", d.Strategy.Tag().Name)
		}
	}
	if len(ev.Bars) > 0 {
		d.Account.OnBars(ev.Bars)
		if err := d.Strategy.OnBars(ctx, d.Account, ev.Bars); err != nil {
			return errors.Wrapf(err, "strategy %s", d.Strategy.Tag().Name)
		}
	}
	d.last = ev
	return nil
}

func (d *dayLoop) openDay(ctx context.Context, day time.Time) error {
	d.day, d.open, d.skip = day, true, false
	d.last = Event{}

	if d.res.Start.IsZero() {
		d.res.Start = day
	}
	d.res.End = day

	err := d.Account.OnOpen(ctx, day)
	if errors.Is(err, sim.ErrDayAborted) {
		d.log.WithError(err).WithField("day", day.Format("2006-01-02")).Warn("day aborted")
		d.res.AbortedDays++
		d.skip = true
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "open %s", day.Format("2006-01-02"))
	}

	if err := d.Strategy.OnOpen(ctx, day); err != nil {
		return errors.Wrapf(err, "strategy %s open %s", d.Strategy.Tag().Name, day.Format("2006-01-02"))
	}
	d.res.TradeDays++
	return nil
}

func (d *dayLoop) closeDay() error {
	d.Account.OnClose()

	entrusts := d.Account.PopCurWaitingPushEntrusts()
	deals := d.Account.PopCurWaitingPushDeals()
	for _, deal := range deals {
		d.res.addDeal(deal)
		if err := d.j.RecordDeal(journal.DealFromSim(d.RunID, deal)); err != nil {
			return errors.Wrapf(err, "journal deal %s", deal.ID)
		}
	}

	ack := d.Account.CurAckData()
	if err := d.j.RecordSnapshot(journal.SnapshotFromAck(d.RunID, ack)); err != nil {
		return errors.Wrapf(err, "journal snapshot %s", d.day.Format("2006-01-02"))
	}
	d.res.addEquity(d.day, ack.Capital)

	d.log.WithFields(logrus.Fields{
		"day":      d.day.Format("2006-01-02"),
		"capital":  ack.Capital,
		"cash":     ack.Cash,
		"entrusts": len(entrusts),
		"deals":    len(deals),
	}).Debug("day closed")
	return nil
}

// liquidate sells every available position at the last quote of the day.
// Daily-bar sells fill on submission. Tick and intraday sells are priced one
// tick under the quote and the last event is replayed through the account
// once so they can match.
func (d *dayLoop) liquidate() {
	replay := false
	for _, code := range d.Account.HeldCodes() {
		pos, _ := d.Account.Position(code)
		if b, ok := d.last.Bars[code]; ok {
			price := b.Close
			if pos.Strategy.Granularity != market.GranularityDaily {
				price -= market.PriceTick
				replay = true
			}
			d.Account.ClosePos(b.Time, code, price, sim.SellLiquidate, "end of replay", &b)
			continue
		}
		if t, ok := d.last.Ticks[code]; ok {
			d.Account.ClosePos(t.Time, code, t.Price-market.PriceTick, sim.SellLiquidate, "end of replay", nil)
			replay = true
		}
	}
	if !replay {
		return
	}
	if len(d.last.Ticks) > 0 {
		d.Account.OnTicks(d.last.Ticks)
	}
	if len(d.last.Bars) > 0 {
		d.Account.OnBars(d.last.Bars)
	}
}

// tradeDay is the calendar date of t as a UTC midnight, the key trading
// calendars use.
func tradeDay(t time.Time) time.Time {
	y, m, dd := t.Date()
	return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
}
