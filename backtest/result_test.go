package backtest

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/stocksim/journal"
	"github.com/rustyeddy/stocksim/market"
	"github.com/rustyeddy/stocksim/sim"
)

func TestResultStatistics(t *testing.T) {
	r := newResult("r", 100_000)

	r.addDeal(sim.Deal{Type: market.Buy})
	r.addDeal(sim.Deal{Type: market.Sell, Pnl: 300})
	r.addDeal(sim.Deal{Type: market.Sell, Pnl: -100})
	r.addDeal(sim.Deal{Type: market.Sell})

	for i, c := range []float64{101_000, 99_000, 102_000, 100_980} {
		r.addEquity(day("2024-01-02").AddDate(0, 0, i), c)
	}

	assert.Equal(t, 4, r.Deals)
	assert.Equal(t, 3, r.Trades)
	assert.Equal(t, 1, r.Wins)
	assert.Equal(t, 1, r.Losses)
	assert.InDelta(t, 3.0, r.ProfitFactor(), 1e-9)
	assert.InDelta(t, 100.0/3, r.WinRate(), 1e-9)
	assert.InDelta(t, 980.0, r.NetPL(), 1e-9)
	assert.InDelta(t, 0.98, r.ReturnPct(), 1e-9)
	// peak 101 000 -> 99 000
	assert.InDelta(t, 2000.0/101_000*100, r.MaxDDPct, 1e-9)

	run := r.BacktestRun()
	assert.Equal(t, "r", run.RunID)
	assert.Equal(t, 3, run.Trades)
	assert.InDelta(t, r.MaxDDPct, run.MaxDDPct, 1e-12)
}

func TestResultNoTrades(t *testing.T) {
	r := newResult("r", 0)
	assert.Zero(t, r.WinRate())
	assert.Zero(t, r.ProfitFactor())
	assert.Zero(t, r.ReturnPct())
}

func TestPrintBacktestRun(t *testing.T) {
	var buf bytes.Buffer
	PrintBacktestRun(&buf, journal.BacktestRun{
		RunID:        "01HX",
		Created:      time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		Strategy:     "ma-cross",
		Codes:        []string{"600000", "000001"},
		Start:        day("2024-01-02"),
		End:          day("2024-01-04"),
		AbortedDays:  1,
		Trades:       2,
		StartCapital: 200_000,
		EndCapital:   201_000,
		NetPL:        1000,
		ReturnPct:    0.5,
		MaxDDPct:     1.25,
		NextActions:  []string{"try ladder stop"},
	})

	out := buf.String()
	assert.Contains(t, out, "Run ID:        01HX")
	assert.Contains(t, out, "Codes:         600000 000001")
	assert.Contains(t, out, "Aborted Days:  1")
	assert.Contains(t, out, "Return:        0.50%")
	assert.Contains(t, out, "Max Drawdown:  1.25%")
	assert.NotContains(t, out, "Profit Factor")
	assert.Contains(t, out, "- [ ] try ladder stop")
}
