package indicators

import (
	"fmt"

	"github.com/rustyeddy/stocksim/market"
)

// MA calculates the simple moving average of the last period bar closes.
func MA(bars []market.Bar, period int) (float64, error) {
	return SMA(Closes(bars), period)
}

// SMA calculates the simple moving average of the last period values.
func SMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(values) < period {
		return 0, fmt.Errorf("not enough values: need %d, got %d", period, len(values))
	}

	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period), nil
}

// SMAWith calculates the moving average of the last period-1 values plus
// last, without modifying values.
func SMAWith(values []float64, last float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(values) < period-1 {
		return 0, fmt.Errorf("not enough values: need %d, got %d", period-1, len(values))
	}

	sum := last
	for i := len(values) - (period - 1); i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period), nil
}

// Closes extracts the close prices of bars.
func Closes(bars []market.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Rescale multiplies every value by ratio in place.
func Rescale(values []float64, ratio float64) {
	for i := range values {
		values[i] *= ratio
	}
}

// EMA calculates the exponential moving average over all values, seeded
// with the simple average of the first period values.
func EMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(values) < period {
		return 0, fmt.Errorf("not enough values: need %d, got %d", period, len(values))
	}

	ema, _ := SMA(values[:period], period)
	k := 2.0 / float64(period+1)
	for _, v := range values[period:] {
		ema = (v-ema)*k + ema
	}
	return ema, nil
}
