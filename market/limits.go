package market

// Limits are the daily price-move bounds, in percent. They are a little
// inside the exchange's nominal bounds so that rounding to the price tick
// still classifies a pinned bar as limit-up/limit-down.
//
// The main boards move at most ±10%, ChiNext and STAR codes ±20%. A zero
// growth-board bound falls back to the main-board one.
type Limits struct {
	UpPct         float64 `json:"limit_up_pct" yaml:"limit_up_pct"`
	DownPct       float64 `json:"limit_down_pct" yaml:"limit_down_pct"`
	GrowthUpPct   float64 `json:"growth_limit_up_pct,omitempty" yaml:"growth_limit_up_pct,omitempty"`
	GrowthDownPct float64 `json:"growth_limit_down_pct,omitempty" yaml:"growth_limit_down_pct,omitempty"`
}

func DefaultLimits() Limits {
	return Limits{UpPct: 9.5, DownPct: -9.5, GrowthUpPct: 19.5, GrowthDownPct: -19.5}
}

// For returns the bounds that apply to code.
func (l Limits) For(code string) (up, down float64) {
	up, down = l.UpPct, l.DownPct
	if IsGrowthBoard(code) {
		if l.GrowthUpPct > 0 {
			up = l.GrowthUpPct
		}
		if l.GrowthDownPct < 0 {
			down = l.GrowthDownPct
		}
	}
	return up, down
}

func (l Limits) IsLimitUp(code string, pct float64) bool {
	up, _ := l.For(code)
	return pct >= up
}

func (l Limits) IsLimitDown(code string, pct float64) bool {
	_, down := l.For(code)
	return pct <= down
}
