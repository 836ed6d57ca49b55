package datasource

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/rustyeddy/stocksim/market"
	"github.com/rustyeddy/stocksim/sim"
)

var (
	ErrNoData        = errors.New("datasource: no data")
	ErrOutOfCalendar = errors.New("datasource: out of calendar")
)

// Format selects the on-disk layout of a data directory.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// loadFunc reads every daily bar of one code.
type loadFunc func(code string) ([]market.Bar, error)

var _ sim.DayProvider = (*Provider)(nil)

// Provider serves daily bars from a directory and caches them per code. One
// Provider may be shared by parallel backtest runs.
type Provider struct {
	cal  *Calendar
	load loadFunc

	mu   sync.RWMutex
	bars map[string][]market.Bar
}

func newProvider(cal *Calendar, load loadFunc) *Provider {
	return &Provider{cal: cal, load: load, bars: make(map[string][]market.Bar)}
}

// Open opens dir in the given format. dir must hold calendar.csv.
func Open(dir string, format Format) (*Provider, error) {
	switch format {
	case FormatCSV, "":
		return NewCSVProvider(dir)
	case FormatParquet:
		return NewParquetProvider(dir)
	default:
		return nil, errors.Errorf("datasource: unknown format %q", format)
	}
}

func (p *Provider) Calendar() *Calendar { return p.cal }

func (p *Provider) TradeDayOffset(day time.Time, n int) (time.Time, error) {
	return p.cal.Offset(day, n)
}

// LoadCode makes the bars of code available through DayBars. The whole
// history of code is read on first use.
func (p *Provider) LoadCode(ctx context.Context, code string, from, to time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.RLock()
	_, ok := p.bars[code]
	p.mu.RUnlock()
	if ok {
		return nil
	}

	bars, err := p.load(code)
	if err != nil {
		return err
	}
	if len(bars) == 0 {
		return errors.Wrapf(ErrNoData, "%s", code)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })

	p.mu.Lock()
	p.bars[code] = bars
	p.mu.Unlock()
	return nil
}

// DayBars returns the cached bars of code, oldest first. The slice must not
// be modified.
func (p *Provider) DayBars(code string) ([]market.Bar, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	bars, ok := p.bars[code]
	return bars, ok
}

// Bar returns the bar of code on day, loading code if needed.
func (p *Provider) Bar(ctx context.Context, code string, day time.Time) (market.Bar, bool, error) {
	day = market.Day(day)
	if err := p.LoadCode(ctx, code, day, day); err != nil {
		return market.Bar{}, false, err
	}
	bars, _ := p.DayBars(code)
	i := sort.Search(len(bars), func(i int) bool { return !bars[i].Day().Before(day) })
	if i < len(bars) && bars[i].Day().Equal(day) {
		return bars[i], true, nil
	}
	return market.Bar{}, false, nil
}
