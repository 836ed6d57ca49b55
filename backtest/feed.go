package backtest

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/rustyeddy/stocksim/datasource"
	"github.com/rustyeddy/stocksim/market"
)

// Event is everything the market published at one instant: the ticks of a
// snapshot or the bars of a period.
type Event struct {
	Time  time.Time
	Ticks map[string]market.Tick
	Bars  map[string]market.Bar
}

// Feed yields events in time order. Implementations should be deterministic
// and return (ok=false, err=nil) at EOF.
type Feed interface {
	Next() (ev Event, ok bool, err error)
	Close() error
}

// CSVTicksFeed reads tick CSV rows:
//
//	time,code,price,pre_close[,open,high,low,volume,name]
//
// where time is RFC3339 or RFC3339Nano. Consecutive rows with the same time
// form one Event.
//
// It optionally filters ticks to [From, To) if provided.
// Header row ("time,...") is allowed.
// Empty/short rows are skipped.
type CSVTicksFeed struct {
	path string
	f    *os.File
	r    *csv.Reader
	from time.Time
	to   time.Time

	codes map[string]bool

	sawFirst bool
	peeked   *market.Tick
}

func NewCSVTicksFeed(path string, from, to time.Time) (*CSVTicksFeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open ticks")
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	return &CSVTicksFeed{path: path, f: f, r: r, from: from, to: to}, nil
}

// Only restricts the feed to codes. With no codes every row is kept.
func (f *CSVTicksFeed) Only(codes ...string) *CSVTicksFeed {
	if len(codes) == 0 {
		f.codes = nil
		return f
	}
	f.codes = make(map[string]bool, len(codes))
	for _, c := range codes {
		f.codes[c] = true
	}
	return f
}

func (f *CSVTicksFeed) Close() error {
	if f.f != nil {
		return f.f.Close()
	}
	return nil
}

// Next groups the ticks sharing a timestamp into one Event.
func (f *CSVTicksFeed) Next() (Event, bool, error) {
	first, ok, err := f.pop()
	if err != nil || !ok {
		return Event{}, false, err
	}

	ev := Event{Time: first.Time, Ticks: map[string]market.Tick{first.Code: first}}
	for {
		t, ok, err := f.pop()
		if err != nil {
			return Event{}, false, err
		}
		if !ok {
			return ev, true, nil
		}
		if !t.Time.Equal(ev.Time) {
			f.peeked = &t
			return ev, true, nil
		}
		ev.Ticks[t.Code] = t
	}
}

func (f *CSVTicksFeed) pop() (market.Tick, bool, error) {
	if f.peeked != nil {
		t := *f.peeked
		f.peeked = nil
		return t, true, nil
	}
	return f.NextTick()
}

// NextTick returns the next tick in range, one row at a time.
func (f *CSVTicksFeed) NextTick() (market.Tick, bool, error) {
	for {
		row, err := f.r.Read()
		if err == io.EOF {
			return market.Tick{}, false, nil
		}
		if err != nil {
			return market.Tick{}, false, errors.Wrap(err, f.path)
		}
		if len(row) == 0 {
			continue
		}

		// Allow a single header row
		if !f.sawFirst {
			f.sawFirst = true
			if strings.EqualFold(strings.TrimSpace(row[0]), "time") {
				continue
			}
		}

		t, ok, err := parseTickRow(row)
		if err != nil {
			line, _ := f.r.FieldPos(0)
			return market.Tick{}, false, errors.Wrapf(err, "%s:%d", f.path, line)
		}
		if !ok {
			continue
		}
		if !inRange(t.Time, f.from, f.to) {
			continue
		}
		if f.codes != nil && !f.codes[t.Code] {
			continue
		}
		return t, true, nil
	}
}

func parseTickRow(row []string) (market.Tick, bool, error) {
	// Need at least: time,code,price,pre_close
	if len(row) < 4 {
		return market.Tick{}, false, nil
	}

	ts := strings.TrimSpace(row[0])
	if ts == "" {
		return market.Tick{}, false, nil
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		t2, err2 := time.Parse(time.RFC3339Nano, ts)
		if err2 != nil {
			return market.Tick{}, false, errors.Wrapf(err, "bad time %q", ts)
		}
		t = t2
	}

	code := strings.TrimSpace(row[1])
	if code == "" {
		return market.Tick{}, false, nil
	}

	tk := market.Tick{Code: code, Time: t}
	if tk.Price, err = parseField(row[2], "price"); err != nil {
		return market.Tick{}, false, err
	}
	if tk.PreClose, err = parseField(row[3], "pre_close"); err != nil {
		return market.Tick{}, false, err
	}

	optional := []*float64{&tk.Open, &tk.High, &tk.Low, &tk.Volume}
	for i, dst := range optional {
		col := 4 + i
		if col >= len(row) || strings.TrimSpace(row[col]) == "" {
			continue
		}
		if *dst, err = parseField(row[col], "column "+strconv.Itoa(col+1)); err != nil {
			return market.Tick{}, false, err
		}
	}
	if len(row) > 8 {
		tk.Name = strings.TrimSpace(row[8])
	}
	return tk, true, nil
}

func parseField(s, name string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, errors.Wrapf(err, "bad %s %q", name, s)
	}
	return v, nil
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}

// BarFeed replays daily bars of a set of codes, one Event per trading day in
// [from, to]. Suspended codes are missing from that day's Bars; a day on
// which every code is suspended still yields an empty Event so the account
// sees the day.
type BarFeed struct {
	p     *datasource.Provider
	codes []string
	days  []time.Time
	i     int
}

// NewBarFeed loads every code up front so Next never touches the disk.
func NewBarFeed(ctx context.Context, p *datasource.Provider, codes []string, from, to time.Time) (*BarFeed, error) {
	for _, code := range codes {
		if err := p.LoadCode(ctx, code, from, to); err != nil {
			return nil, errors.Wrapf(err, "load %s", code)
		}
	}
	days := p.Calendar().Between(from, to)
	if len(days) == 0 {
		return nil, errors.Wrapf(datasource.ErrOutOfCalendar, "no trading days in %s..%s",
			from.Format("2006-01-02"), to.Format("2006-01-02"))
	}
	return &BarFeed{p: p, codes: codes, days: days}, nil
}

func (f *BarFeed) Next() (Event, bool, error) {
	if f.i >= len(f.days) {
		return Event{}, false, nil
	}
	day := f.days[f.i]
	f.i++

	ev := Event{Time: day, Bars: make(map[string]market.Bar, len(f.codes))}
	for _, code := range f.codes {
		b, ok, err := f.p.Bar(context.Background(), code, day)
		if err != nil {
			return Event{}, false, err
		}
		if ok {
			ev.Bars[code] = b
		}
	}
	return ev, true, nil
}

func (f *BarFeed) Close() error { return nil }
