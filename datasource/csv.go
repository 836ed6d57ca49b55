package datasource

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/rustyeddy/stocksim/market"
)

// CSVHeader is the column layout of <code>.csv files.
var CSVHeader = []string{"date", "open", "high", "low", "close", "pre_close", "volume", "adj_factor", "volume_ratio", "name"}

// NewCSVProvider serves <dir>/<code>.csv files with CSVHeader columns. The
// trailing volume_ratio and name columns are optional.
func NewCSVProvider(dir string) (*Provider, error) {
	cal, err := LoadCalendarCSV(filepath.Join(dir, "calendar.csv"))
	if err != nil {
		return nil, err
	}
	return newProvider(cal, func(code string) ([]market.Bar, error) {
		return ReadBarsCSV(filepath.Join(dir, code+".csv"), code)
	}), nil
}

// ReadBarsCSV reads a daily bar file of code.
func ReadBarsCSV(path, code string) ([]market.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNoData, "%s", code)
		}
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var bars []market.Bar
	line := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, errors.Wrapf(err, "%s:%d", path, line)
		}
		if len(row) == 0 || strings.EqualFold(strings.TrimSpace(row[0]), "date") {
			continue
		}
		b, err := parseBarRow(row)
		if err != nil {
			return nil, errors.Wrapf(err, "%s:%d", path, line)
		}
		b.Code = code
		bars = append(bars, b)
	}
	return bars, nil
}

func parseBarRow(row []string) (market.Bar, error) {
	if len(row) < 8 {
		return market.Bar{}, errors.Errorf("want at least 8 columns, got %d", len(row))
	}
	day, err := time.Parse(dateLayout, strings.TrimSpace(row[0]))
	if err != nil {
		return market.Bar{}, errors.Wrap(err, "bad date")
	}

	var f [6]float64
	for i, col := range []int{1, 2, 3, 4, 5, 7} {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
		if err != nil {
			return market.Bar{}, errors.Wrapf(err, "bad %s", CSVHeader[col])
		}
		f[i] = v
	}
	volume, err := strconv.ParseInt(strings.TrimSpace(row[6]), 10, 64)
	if err != nil {
		return market.Bar{}, errors.Wrap(err, "bad volume")
	}

	b := market.Bar{
		Time:      day,
		Open:      f[0],
		High:      f[1],
		Low:       f[2],
		Close:     f[3],
		PreClose:  f[4],
		Volume:    float64(volume),
		AdjFactor: f[5],
	}
	if len(row) > 8 && strings.TrimSpace(row[8]) != "" {
		if b.VolumeRatio, err = strconv.ParseFloat(strings.TrimSpace(row[8]), 64); err != nil {
			return market.Bar{}, errors.Wrap(err, "bad volume_ratio")
		}
	}
	if len(row) > 9 {
		b.Name = strings.TrimSpace(row[9])
	}
	return b, nil
}

// WriteBarsCSV writes bars in the layout ReadBarsCSV expects.
func WriteBarsCSV(path string, bars []market.Bar) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(CSVHeader); err != nil {
		return err
	}
	ff := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for _, b := range bars {
		if err := w.Write([]string{
			b.Day().Format(dateLayout),
			ff(b.Open), ff(b.High), ff(b.Low), ff(b.Close), ff(b.PreClose),
			strconv.FormatInt(int64(b.Volume), 10),
			ff(b.AdjFactor), ff(b.VolumeRatio),
			b.Name,
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteCalendarCSV writes days in the layout LoadCalendarCSV expects.
func WriteCalendarCSV(path string, days []time.Time) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"date"}); err != nil {
		return err
	}
	for _, d := range days {
		if err := w.Write([]string{d.Format(dateLayout)}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
