package datasource

import (
	"encoding/csv"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/rustyeddy/stocksim/market"
)

const dateLayout = "2006-01-02"

// Calendar is the ordered list of trading days of the exchange.
type Calendar struct {
	days []time.Time
}

// NewCalendar normalizes days to midnight UTC, sorts and dedupes them.
func NewCalendar(days []time.Time) *Calendar {
	seen := make(map[time.Time]bool, len(days))
	out := make([]time.Time, 0, len(days))
	for _, d := range days {
		d = market.Day(d)
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return &Calendar{days: out}
}

// LoadCalendarCSV reads one date per row (YYYY-MM-DD). A "date" header is
// allowed.
func LoadCalendarCSV(path string) (*Calendar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open calendar")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var days []time.Time
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read calendar %s", path)
		}
		if len(row) == 0 {
			continue
		}
		s := strings.TrimSpace(row[0])
		if s == "" || strings.EqualFold(s, "date") {
			continue
		}
		d, err := time.Parse(dateLayout, s)
		if err != nil {
			return nil, errors.Wrapf(err, "calendar %s", path)
		}
		days = append(days, d)
	}
	if len(days) == 0 {
		return nil, errors.Wrapf(ErrNoData, "calendar %s is empty", path)
	}
	return NewCalendar(days), nil
}

func (c *Calendar) Days() []time.Time {
	out := make([]time.Time, len(c.days))
	copy(out, c.days)
	return out
}

func (c *Calendar) index(day time.Time) (int, bool) {
	day = market.Day(day)
	i := sort.Search(len(c.days), func(i int) bool { return !c.days[i].Before(day) })
	return i, i < len(c.days) && c.days[i].Equal(day)
}

func (c *Calendar) IsTradeDay(day time.Time) bool {
	_, ok := c.index(day)
	return ok
}

// Offset returns the trading day n days after day (n may be negative). day
// must itself be a trading day.
func (c *Calendar) Offset(day time.Time, n int) (time.Time, error) {
	i, ok := c.index(day)
	if !ok {
		return time.Time{}, errors.Wrapf(ErrOutOfCalendar, "%s is not a trading day", day.Format(dateLayout))
	}
	j := i + n
	if j < 0 || j >= len(c.days) {
		return time.Time{}, errors.Wrapf(ErrOutOfCalendar, "%s%+d", day.Format(dateLayout), n)
	}
	return c.days[j], nil
}

// Between returns the trading days in [from, to].
func (c *Calendar) Between(from, to time.Time) []time.Time {
	from, to = market.Day(from), market.Day(to)
	var out []time.Time
	for _, d := range c.days {
		if d.Before(from) {
			continue
		}
		if d.After(to) {
			break
		}
		out = append(out, d)
	}
	return out
}
