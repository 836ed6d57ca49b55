package sim

import (
	"context"
	"time"

	"github.com/rustyeddy/stocksim/market"
)

// DayProvider is the historical daily-bar source used by position
// reconciliation and the moving-average exit policies.
type DayProvider interface {
	// TradeDayOffset returns the trading day n days away from day. n=0
	// returns day itself if it is a trading day.
	TradeDayOffset(day time.Time, n int) (time.Time, error)
	// LoadCode makes the bars of code within [from, to] available to DayBars.
	LoadCode(ctx context.Context, code string, from, to time.Time) error
	// DayBars returns the loaded bars of code, oldest first.
	DayBars(code string) ([]market.Bar, bool)
}

// barsBetween returns the bars whose day lies in [from, to].
func barsBetween(bars []market.Bar, from, to time.Time) []market.Bar {
	from, to = market.Day(from), market.Day(to)
	var out []market.Bar
	for _, b := range bars {
		d := b.Day()
		if d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, b)
	}
	return out
}
