package market

import "time"

// Tick is a single snapshot of an instrument's trading session.
//
// PreClose is the exchange-published previous close, which already reflects
// any ex-rights/ex-dividend adjustment that happened at today's open.
type Tick struct {
	Code     string
	Name     string
	Time     time.Time
	Price    float64
	PreClose float64
	Open     float64
	High     float64
	Low      float64
	Volume   float64
}

// PctChange is the tick's percentage move against the previous close.
func (t Tick) PctChange() float64 {
	return PctChange(t.Price, t.PreClose)
}
