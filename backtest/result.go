package backtest

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rustyeddy/stocksim/journal"
	"github.com/rustyeddy/stocksim/market"
	"github.com/rustyeddy/stocksim/sim"
)

// EquityPoint is the account capital at one day's close.
type EquityPoint struct {
	Day     time.Time
	Capital float64
}

// Result is a summary of a backtest run. A trade is a sell deal; its
// realized P&L decides whether it is a win or a loss.
type Result struct {
	RunID string

	Start time.Time
	End   time.Time

	TradeDays   int
	AbortedDays int

	StartCapital float64
	EndCapital   float64

	Deals  int
	Trades int
	Wins   int
	Losses int

	GrossProfit float64
	GrossLoss   float64
	MaxDDPct    float64

	Equity []EquityPoint

	peak float64
}

func newResult(runID string, capital float64) Result {
	return Result{RunID: runID, StartCapital: capital, EndCapital: capital, peak: capital}
}

func (r *Result) addDeal(d sim.Deal) {
	r.Deals++
	if d.Type != market.Sell {
		return
	}
	r.Trades++
	switch {
	case d.Pnl > 0:
		r.Wins++
		r.GrossProfit += d.Pnl
	case d.Pnl < 0:
		r.Losses++
		r.GrossLoss -= d.Pnl
	}
}

func (r *Result) addEquity(day time.Time, capital float64) {
	r.Equity = append(r.Equity, EquityPoint{Day: day, Capital: capital})
	r.EndCapital = capital
	if capital > r.peak {
		r.peak = capital
	}
	if r.peak > 0 {
		if dd := (r.peak - capital) / r.peak * 100; dd > r.MaxDDPct {
			r.MaxDDPct = dd
		}
	}
}

func (r Result) NetPL() float64 { return r.EndCapital - r.StartCapital }

// ReturnPct is the net P&L in percent of the starting capital.
func (r Result) ReturnPct() float64 {
	if r.StartCapital == 0 {
		return 0
	}
	return r.NetPL() / r.StartCapital * 100
}

func (r Result) WinRate() float64 {
	if r.Trades == 0 {
		return 0
	}
	return float64(r.Wins) / float64(r.Trades) * 100
}

// ProfitFactor is gross profit over gross loss, 0 when there was no loss.
func (r Result) ProfitFactor() float64 {
	if r.GrossLoss == 0 {
		return 0
	}
	return r.GrossProfit / r.GrossLoss
}

// BacktestRun fills the statistics of a journal run record. Descriptive
// fields (strategy, codes, config) are left to the caller.
func (r Result) BacktestRun() journal.BacktestRun {
	return journal.BacktestRun{
		RunID:        r.RunID,
		Created:      time.Now().UTC(),
		Start:        r.Start,
		End:          r.End,
		TradeDays:    r.TradeDays,
		AbortedDays:  r.AbortedDays,
		Deals:        r.Deals,
		Trades:       r.Trades,
		Wins:         r.Wins,
		Losses:       r.Losses,
		StartCapital: r.StartCapital,
		EndCapital:   r.EndCapital,
		NetPL:        r.NetPL(),
		ReturnPct:    r.ReturnPct(),
		WinRate:      r.WinRate(),
		ProfitFactor: r.ProfitFactor(),
		MaxDDPct:     r.MaxDDPct,
	}
}

func PrintBacktestRun(w io.Writer, r journal.BacktestRun) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Run ID:        %s\n", r.RunID)
	fmt.Fprintf(w, "Created:       %s\n", r.Created.Format(time.RFC3339))
	fmt.Fprintf(w, "Strategy:      %s\n", r.Strategy)
	fmt.Fprintf(w, "Codes:         %s\n", strings.Join(r.Codes, " "))
	fmt.Fprintf(w, "Granularity:   %s\n", r.Granularity)
	fmt.Fprintf(w, "Dataset:       %s\n", r.Dataset)
	if r.Stops != "" {
		fmt.Fprintf(w, "Stops:         %s\n", r.Stops)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Period")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start:         %s\n", r.Start.Format("2006-01-02"))
	fmt.Fprintf(w, "End:           %s\n", r.End.Format("2006-01-02"))
	fmt.Fprintf(w, "Trade Days:    %d\n", r.TradeDays)
	if r.AbortedDays > 0 {
		fmt.Fprintf(w, "Aborted Days:  %d\n", r.AbortedDays)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Deals:         %d\n", r.Deals)
	fmt.Fprintf(w, "Trades:        %d\n", r.Trades)
	fmt.Fprintf(w, "Wins:          %d\n", r.Wins)
	fmt.Fprintf(w, "Losses:        %d\n", r.Losses)
	fmt.Fprintf(w, "Win Rate:      %.2f%%\n", r.WinRate)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start Capital: %.2f\n", r.StartCapital)
	fmt.Fprintf(w, "End Capital:   %.2f\n", r.EndCapital)
	fmt.Fprintf(w, "Net P/L:       %.2f\n", r.NetPL)
	fmt.Fprintf(w, "Return:        %.2f%%\n", r.ReturnPct)

	if r.ProfitFactor > 0 {
		fmt.Fprintf(w, "Profit Factor: %.2f\n", r.ProfitFactor)
	}
	if r.MaxDDPct > 0 {
		fmt.Fprintf(w, "Max Drawdown:  %.2f%%\n", r.MaxDDPct)
	}

	if r.OrgPath != "" {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Org Report:    %s\n", r.OrgPath)
	}

	if len(r.Notes) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Observations")
		fmt.Fprintln(w, "--------------------------------------------------")
		for _, note := range r.Notes {
			fmt.Fprintf(w, "- %s\n", note)
		}
	}

	if len(r.NextActions) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Next Actions")
		fmt.Fprintln(w, "--------------------------------------------------")
		for _, action := range r.NextActions {
			fmt.Fprintf(w, "- [ ] %s\n", action)
		}
	}

	fmt.Fprintln(w)
}
