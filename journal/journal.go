package journal

import (
	"sync"
	"time"

	"github.com/rustyeddy/stocksim/market"
	"github.com/rustyeddy/stocksim/sim"
)

// DealRecord is one executed deal of a backtest run.
type DealRecord struct {
	RunID     string
	DealID    string
	EntrustID string
	Code      string
	Name      string
	Side      string
	Price     float64
	Volume    int64
	TradeCost float64
	Time      time.Time
	Strategy  string
	Reason    string

	// sells only
	Pnl           float64
	PnlRatio      float64
	HoldingPeriod int
}

// DaySnapshot is the account at the close of one trading day.
type DaySnapshot struct {
	RunID       string
	Day         time.Time
	Cash        float64
	MarketValue float64
	Capital     float64
	Positions   int
	Deals       int
}

type Journal interface {
	RecordDeal(DealRecord) error
	RecordSnapshot(DaySnapshot) error
	Close() error
}

func DealFromSim(runID string, d sim.Deal) DealRecord {
	rec := DealRecord{
		RunID:     runID,
		DealID:    d.ID,
		EntrustID: d.EntrustID,
		Code:      d.Code,
		Name:      d.Name,
		Side:      d.Type.String(),
		Price:     d.Price,
		Volume:    d.Volume,
		TradeCost: d.TradeCost,
		Time:      d.Time,
		Strategy:  d.Strategy.Name,
	}
	if d.Type == market.Sell {
		rec.Reason = d.Reason.String()
		rec.Pnl = d.Pnl
		rec.PnlRatio = d.PnlRatio
		rec.HoldingPeriod = d.HoldingPeriod
	}
	return rec
}

func SnapshotFromAck(runID string, a sim.AckData) DaySnapshot {
	s := DaySnapshot{
		RunID:     runID,
		Day:       a.Day,
		Cash:      a.Cash,
		Capital:   a.Capital,
		Positions: len(a.Positions),
		Deals:     len(a.Deals),
	}
	for _, p := range a.Positions {
		s.MarketValue += p.MarketValue()
	}
	return s
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordDeal(DealRecord) error      { return nil }
func (Nop) RecordSnapshot(DaySnapshot) error { return nil }
func (Nop) Close() error                     { return nil }

// Locked serializes access to a Journal shared by parallel runs. Close is
// passed through.
func Locked(j Journal) Journal {
	return &locked{j: j}
}

type locked struct {
	mu sync.Mutex
	j  Journal
}

func (l *locked) RecordDeal(d DealRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.j.RecordDeal(d)
}

func (l *locked) RecordSnapshot(s DaySnapshot) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.j.RecordSnapshot(s)
}

func (l *locked) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.j.Close()
}
