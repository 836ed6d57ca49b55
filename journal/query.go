package journal

import (
	"database/sql"
	"fmt"
	"time"
)

const dealColumns = `deal_id, run_id, entrust_id, code, name, side, price, volume, trade_cost, time, strategy, reason, pnl, pnl_ratio, holding_period`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeal(s rowScanner) (DealRecord, error) {
	var d DealRecord
	err := s.Scan(
		&d.DealID,
		&d.RunID,
		&d.EntrustID,
		&d.Code,
		&d.Name,
		&d.Side,
		&d.Price,
		&d.Volume,
		&d.TradeCost,
		&d.Time,
		&d.Strategy,
		&d.Reason,
		&d.Pnl,
		&d.PnlRatio,
		&d.HoldingPeriod,
	)
	return d, err
}

func scanDeals(rows *sql.Rows) ([]DealRecord, error) {
	defer rows.Close()

	var out []DealRecord
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetDeal returns a single deal of a run.
func (j *SQLite) GetDeal(runID, dealID string) (DealRecord, error) {
	row := j.db.QueryRow(`
		SELECT `+dealColumns+`
		FROM deals
		WHERE run_id = ? AND deal_id = ?`, runID, dealID)

	d, err := scanDeal(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return DealRecord{}, fmt.Errorf("deal %q not found", dealID)
		}
		return DealRecord{}, err
	}
	return d, nil
}

// ListDealsBetween returns deals of every run whose time is within [start, end).
func (j *SQLite) ListDealsBetween(start, end time.Time) ([]DealRecord, error) {
	rows, err := j.db.Query(`
		SELECT `+dealColumns+`
		FROM deals
		WHERE time >= ? AND time < ?
		ORDER BY time ASC, deal_id ASC`, start, end)
	if err != nil {
		return nil, err
	}
	return scanDeals(rows)
}

// RealizedByCode sums the realized P&L of sells per code for a run.
func (j *SQLite) RealizedByCode(runID string) (map[string]float64, error) {
	rows, err := j.db.Query(`
		SELECT code, SUM(pnl)
		FROM deals
		WHERE run_id = ? AND side = 'sell'
		GROUP BY code`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var (
			code string
			pnl  float64
		)
		if err := rows.Scan(&code, &pnl); err != nil {
			return nil, err
		}
		out[code] = pnl
	}
	return out, rows.Err()
}
