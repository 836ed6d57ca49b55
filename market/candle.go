package market

import "time"

// Bar is an OHLC bar for one instrument. Daily bars carry the cumulative
// adjustment factor and, on ex-rights days, the share ratio.
type Bar struct {
	Code     string
	Name     string
	Time     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	PreClose float64
	Volume   float64

	// AdjFactor is the cumulative backward adjustment factor (0 if unknown).
	AdjFactor float64
	// VolumeRatio is the number of shares held after an ex-rights event per
	// share held before it (0 or 1 when there is no share change).
	VolumeRatio float64
}

// PctChange is the close's percentage move against the previous close.
func (b Bar) PctChange() float64 {
	return PctChange(b.Close, b.PreClose)
}

// Degenerate reports whether the whole bar traded at a single price.
func (b Bar) Degenerate() bool {
	return b.High == b.Low
}

// Day truncates the bar time to its calendar date.
func (b Bar) Day() time.Time {
	return Day(b.Time)
}

// Day truncates t to midnight in t's location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
