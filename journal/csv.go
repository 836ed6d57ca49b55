package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

type CSVJournal struct {
	deals     *csv.Writer
	snapshots *csv.Writer
	df, sf    *os.File
}

var (
	dealsHeader     = []string{"run_id", "deal_id", "entrust_id", "code", "name", "side", "price", "volume", "trade_cost", "time", "strategy", "reason", "pnl", "pnl_ratio", "holding_period"}
	snapshotsHeader = []string{"run_id", "day", "cash", "market_value", "capital", "positions", "deals"}
)

func NewCSV(dealsPath, snapshotsPath string) (*CSVJournal, error) {
	df, err := os.Create(dealsPath)
	if err != nil {
		return nil, err
	}
	sf, err := os.Create(snapshotsPath)
	if err != nil {
		_ = df.Close()
		return nil, err
	}

	dw := csv.NewWriter(df)
	sw := csv.NewWriter(sf)

	if err := dw.Write(dealsHeader); err != nil {
		return nil, err
	}
	if err := sw.Write(snapshotsHeader); err != nil {
		return nil, err
	}

	dw.Flush()
	if err := dw.Error(); err != nil {
		return nil, err
	}
	sw.Flush()
	if err := sw.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{dw, sw, df, sf}, nil
}

func (j *CSVJournal) RecordDeal(d DealRecord) error {
	err := j.deals.Write([]string{
		d.RunID,
		d.DealID,
		d.EntrustID,
		d.Code,
		d.Name,
		d.Side,
		f(d.Price),
		strconv.FormatInt(d.Volume, 10),
		f(d.TradeCost),
		d.Time.Format(time.RFC3339),
		d.Strategy,
		d.Reason,
		f(d.Pnl),
		f(d.PnlRatio),
		strconv.Itoa(d.HoldingPeriod),
	})
	if err != nil {
		return err
	}
	j.deals.Flush()
	return j.deals.Error()
}

func (j *CSVJournal) RecordSnapshot(s DaySnapshot) error {
	err := j.snapshots.Write([]string{
		s.RunID,
		s.Day.Format("2006-01-02"),
		f(s.Cash),
		f(s.MarketValue),
		f(s.Capital),
		strconv.Itoa(s.Positions),
		strconv.Itoa(s.Deals),
	})
	if err != nil {
		return err
	}

	j.snapshots.Flush()
	return j.snapshots.Error()
}

func (j *CSVJournal) Close() error {
	j.deals.Flush()
	if err := j.deals.Error(); err != nil {
		return err
	}
	j.snapshots.Flush()
	if err := j.snapshots.Error(); err != nil {
		return err
	}

	if err := j.df.Close(); err != nil {
		return err
	}
	if err := j.sf.Close(); err != nil {
		return err
	}
	return nil
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
