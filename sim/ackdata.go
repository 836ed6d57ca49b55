package sim

import (
	"sort"
	"time"
)

// AckData is the end-of-day snapshot of an account. Positions and deals are
// copies, but a Deal's Signal is copied as is: a pointer stored there by a
// strategy is shared with the snapshot and must not be mutated afterwards.
type AckData struct {
	Day       time.Time
	InitCash  float64
	Cash      float64
	Capital   float64
	Positions map[string]Position
	Deals     []Deal
}

// CurAckData snapshots the current day.
func (m *AccountManager) CurAckData() AckData {
	ack := AckData{
		Day:       m.curDay,
		InitCash:  m.initCash,
		Cash:      m.cash,
		Capital:   m.CurCapital(),
		Positions: make(map[string]Position, len(m.positions)),
		Deals:     make([]Deal, 0, len(m.curDeals)),
	}
	for code, pos := range m.positions {
		ack.Positions[code] = *pos
	}
	for _, d := range m.curDeals {
		ack.Deals = append(ack.Deals, *d)
	}
	return ack
}

// PositionList returns the snapshot positions sorted by code.
func (a AckData) PositionList() []Position {
	out := make([]Position, 0, len(a.Positions))
	for _, p := range a.Positions {
		out = append(out, p)
	}
	sortPositions(out)
	return out
}

func sortPositions(ps []Position) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].Code < ps[j].Code })
}
