package datasource

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"

	"github.com/rustyeddy/stocksim/market"
)

// BarRecord is the Parquet schema for daily bar data.
type BarRecord struct {
	Code        string  `parquet:"code"`
	Name        string  `parquet:"name"`
	Timestamp   int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms, midnight UTC
	Open        float64 `parquet:"open"`
	High        float64 `parquet:"high"`
	Low         float64 `parquet:"low"`
	Close       float64 `parquet:"close"`
	PreClose    float64 `parquet:"pre_close"`
	Volume      int64   `parquet:"volume"`
	AdjFactor   float64 `parquet:"adj_factor"`
	VolumeRatio float64 `parquet:"volume_ratio"`
}

// NewParquetProvider serves <dir>/<code>.parquet files of BarRecord rows.
// The calendar is still read from <dir>/calendar.csv.
func NewParquetProvider(dir string) (*Provider, error) {
	cal, err := LoadCalendarCSV(filepath.Join(dir, "calendar.csv"))
	if err != nil {
		return nil, err
	}
	return newProvider(cal, func(code string) ([]market.Bar, error) {
		return ReadBarsParquet(filepath.Join(dir, code+".parquet"))
	}), nil
}

func ReadBarsParquet(path string) ([]market.Bar, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrNoData, "%s", filepath.Base(path))
	}
	rows, err := parquet.ReadFile[BarRecord](path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}

	bars := make([]market.Bar, 0, len(rows))
	for _, r := range rows {
		bars = append(bars, market.Bar{
			Code:        r.Code,
			Name:        r.Name,
			Time:        time.UnixMilli(r.Timestamp).UTC(),
			Open:        r.Open,
			High:        r.High,
			Low:         r.Low,
			Close:       r.Close,
			PreClose:    r.PreClose,
			Volume:      float64(r.Volume),
			AdjFactor:   r.AdjFactor,
			VolumeRatio: r.VolumeRatio,
		})
	}
	return bars, nil
}

// WriteBarsParquet writes bars sorted by day, replacing path.
func WriteBarsParquet(path string, bars []market.Bar) error {
	records := make([]BarRecord, 0, len(bars))
	for _, b := range bars {
		records = append(records, BarRecord{
			Code:        b.Code,
			Name:        b.Name,
			Timestamp:   b.Day().UnixMilli(),
			Open:        b.Open,
			High:        b.High,
			Low:         b.Low,
			Close:       b.Close,
			PreClose:    b.PreClose,
			Volume:      int64(b.Volume),
			AdjFactor:   b.AdjFactor,
			VolumeRatio: b.VolumeRatio,
		})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Timestamp < records[j].Timestamp })

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

// ConvertCSVToParquet rewrites every <code>.csv of src as <code>.parquet in
// dst and copies the calendar. It returns the converted codes.
func ConvertCSVToParquet(src, dst string) ([]string, error) {
	cal, err := LoadCalendarCSV(filepath.Join(src, "calendar.csv"))
	if err != nil {
		return nil, err
	}
	if err := WriteCalendarCSV(filepath.Join(dst, "calendar.csv"), cal.Days()); err != nil {
		return nil, err
	}

	files, err := filepath.Glob(filepath.Join(src, "*.csv"))
	if err != nil {
		return nil, err
	}
	var codes []string
	for _, f := range files {
		base := filepath.Base(f)
		if base == "calendar.csv" {
			continue
		}
		code := base[:len(base)-len(".csv")]
		bars, err := ReadBarsCSV(f, code)
		if err != nil {
			return codes, err
		}
		if err := WriteBarsParquet(filepath.Join(dst, code+".parquet"), bars); err != nil {
			return codes, errors.Wrapf(err, "convert %s", code)
		}
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes, nil
}
