package sim

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rustyeddy/stocksim/market"
)

// memProvider is an in-memory DayProvider for tests.
type memProvider struct {
	days    []time.Time
	bars    map[string][]market.Bar
	failFor map[string]bool
	loads   int
}

func newMemProvider(days ...time.Time) *memProvider {
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return &memProvider{
		days:    days,
		bars:    make(map[string][]market.Bar),
		failFor: make(map[string]bool),
	}
}

func (p *memProvider) addBar(code string, day time.Time, close, preClose, adj float64) {
	p.bars[code] = append(p.bars[code], market.Bar{
		Code:      code,
		Time:      day,
		Open:      close,
		High:      close,
		Low:       close,
		Close:     close,
		PreClose:  preClose,
		AdjFactor: adj,
	})
}

func (p *memProvider) TradeDayOffset(day time.Time, n int) (time.Time, error) {
	i := sort.Search(len(p.days), func(i int) bool { return !p.days[i].Before(day) })
	if i == len(p.days) || !p.days[i].Equal(day) {
		return time.Time{}, fmt.Errorf("%s is not a trading day", day.Format("2006-01-02"))
	}
	j := i + n
	if j < 0 || j >= len(p.days) {
		return time.Time{}, errors.New("offset outside calendar")
	}
	return p.days[j], nil
}

func (p *memProvider) LoadCode(_ context.Context, code string, _, _ time.Time) error {
	p.loads++
	if p.failFor[code] {
		return fmt.Errorf("no data for %s", code)
	}
	return nil
}

func (p *memProvider) DayBars(code string) ([]market.Bar, bool) {
	bars, ok := p.bars[code]
	return bars, ok
}
