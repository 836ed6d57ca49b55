package journal

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/stocksim/market"
	"github.com/rustyeddy/stocksim/sim"
)

func TestDealFromSim(t *testing.T) {
	at := time.Date(2024, 3, 5, 9, 33, 0, 0, time.UTC)
	sell := sim.Deal{
		ID:            "simu.2024-03-05_1",
		EntrustID:     "simu.2024-03-05_1",
		Type:          market.Sell,
		Code:          "000001.SZ",
		Price:         9.5,
		Volume:        100,
		TradeCost:     5.95,
		Time:          at,
		Strategy:      sim.StrategyTag{Name: "open-once"},
		Reason:        sim.SellStopLoss,
		Pnl:           -60.95,
		PnlRatio:      -6.06,
		HoldingPeriod: 1,
	}
	rec := DealFromSim("run-1", sell)
	assert.Equal(t, "run-1", rec.RunID)
	assert.Equal(t, "sell", rec.Side)
	assert.Equal(t, "stop_loss", rec.Reason)
	assert.Equal(t, "open-once", rec.Strategy)
	assert.Equal(t, -60.95, rec.Pnl)
	assert.Equal(t, 1, rec.HoldingPeriod)

	buy := sell
	buy.Type = market.Buy
	buy.Pnl = 0
	rec = DealFromSim("run-1", buy)
	assert.Equal(t, "buy", rec.Side)
	assert.Empty(t, rec.Reason)
}

func TestSnapshotFromAck(t *testing.T) {
	ack := sim.AckData{
		Day:     time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		Cash:    198995,
		Capital: 199994,
		Positions: map[string]sim.Position{
			"000001.SZ": {Code: "000001.SZ", TotalVolume: 100, Price: 9.99},
		},
		Deals: []sim.Deal{{ID: "d1"}},
	}
	s := SnapshotFromAck("run-1", ack)
	assert.Equal(t, 1, s.Positions)
	assert.Equal(t, 1, s.Deals)
	assert.InDelta(t, 999.0, s.MarketValue, 1e-9)
	assert.Equal(t, 199994.0, s.Capital)
}

func TestNopJournal(t *testing.T) {
	var j Journal = Nop{}
	assert.NoError(t, j.RecordDeal(DealRecord{}))
	assert.NoError(t, j.RecordSnapshot(DaySnapshot{}))
	assert.NoError(t, j.Close())
}

type countingJournal struct {
	deals, snaps int
	closed       bool
}

func (c *countingJournal) RecordDeal(DealRecord) error      { c.deals++; return nil }
func (c *countingJournal) RecordSnapshot(DaySnapshot) error { c.snaps++; return nil }
func (c *countingJournal) Close() error                     { c.closed = true; return nil }

func TestLockedJournal(t *testing.T) {
	inner := &countingJournal{}
	j := Locked(inner)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for k := 0; k < 50; k++ {
				_ = j.RecordDeal(DealRecord{RunID: fmt.Sprint(i)})
				_ = j.RecordSnapshot(DaySnapshot{RunID: fmt.Sprint(i)})
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 400, inner.deals)
	assert.Equal(t, 400, inner.snaps)
	assert.NoError(t, j.Close())
	assert.True(t, inner.closed)
}
