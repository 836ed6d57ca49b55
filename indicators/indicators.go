// Package indicators computes moving averages over bar closes, both in
// batch over a slice and as streaming values fed one bar at a time.
package indicators

import "github.com/rustyeddy/stocksim/market"

// Indicator computes a single streaming value from bars.
type Indicator interface {
	// Name returns a stable identifier like "EMA(20)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next closed bar.
	Update(b market.Bar)

	// Ready reports whether Value() is meaningful.
	Ready() bool

	// Value returns the current value, or 0 before warmup completes.
	Value() float64

	// Rescale multiplies the internal state by ratio after an ex-rights
	// price adjustment so the average stays comparable to new closes.
	Rescale(ratio float64)
}

var (
	_ Indicator = (*SimpleMA)(nil)
	_ Indicator = (*ExponentialMA)(nil)
)

// New returns the streaming average named by kind ("sma" or "ema").
func New(kind string, period int) (Indicator, bool) {
	switch kind {
	case "sma", "ma":
		return NewMA(period), true
	case "ema":
		return NewEMA(period), true
	}
	return nil, false
}
