package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// One writer at a time; parallel runs share the handle.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordDeal(d DealRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO deals
		(deal_id, run_id, entrust_id, code, name, side, price, volume, trade_cost, time, strategy, reason, pnl, pnl_ratio, holding_period)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.DealID, d.RunID, d.EntrustID, d.Code, d.Name, d.Side, d.Price, d.Volume,
		d.TradeCost, d.Time, d.Strategy, d.Reason, d.Pnl, d.PnlRatio, d.HoldingPeriod,
	)
	return err
}

func (j *SQLite) RecordSnapshot(s DaySnapshot) error {
	_, err := j.db.Exec(`
		INSERT OR REPLACE INTO snapshots
		(run_id, day, cash, market_value, capital, positions, deals)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.RunID, s.Day, s.Cash, s.MarketValue, s.Capital, s.Positions, s.Deals,
	)
	return err
}

func (j *SQLite) RecordBacktest(ctx context.Context, r BacktestRun) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO backtest_runs
		(run_id, created, granularity, dataset, codes, strategy, config, stops, start_day, end_day,
		 trade_days, aborted_days, deals, trades, wins, losses,
		 start_capital, end_capital, net_pl, return_pct, win_rate, profit_factor, max_dd_pct)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created, r.Granularity, r.Dataset, strings.Join(r.Codes, ","), r.Strategy, r.Config, r.Stops,
		r.Start, r.End, r.TradeDays, r.AbortedDays, r.Deals, r.Trades, r.Wins, r.Losses,
		r.StartCapital, r.EndCapital, r.NetPL, r.ReturnPct, r.WinRate, r.ProfitFactor, r.MaxDDPct,
	)
	return err
}

func (j *SQLite) GetBacktestRun(ctx context.Context, runID string) (BacktestRun, error) {
	var (
		r     BacktestRun
		codes string
	)
	row := j.db.QueryRowContext(ctx, `
		SELECT run_id, created, granularity, dataset, codes, strategy, config, stops, start_day, end_day,
		       trade_days, aborted_days, deals, trades, wins, losses,
		       start_capital, end_capital, net_pl, return_pct, win_rate, profit_factor, max_dd_pct
		FROM backtest_runs
		WHERE run_id = ?`, runID)
	err := row.Scan(
		&r.RunID, &r.Created, &r.Granularity, &r.Dataset, &codes, &r.Strategy, &r.Config, &r.Stops,
		&r.Start, &r.End, &r.TradeDays, &r.AbortedDays, &r.Deals, &r.Trades, &r.Wins, &r.Losses,
		&r.StartCapital, &r.EndCapital, &r.NetPL, &r.ReturnPct, &r.WinRate, &r.ProfitFactor, &r.MaxDDPct,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return BacktestRun{}, fmt.Errorf("backtest run %q not found", runID)
		}
		return BacktestRun{}, err
	}
	if codes != "" {
		r.Codes = strings.Split(codes, ",")
	}
	return r, nil
}

func (j *SQLite) ListDealsByRunID(ctx context.Context, runID string) ([]DealRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+dealColumns+`
		FROM deals
		WHERE run_id = ?
		ORDER BY time ASC, deal_id ASC`, runID)
	if err != nil {
		return nil, err
	}
	return scanDeals(rows)
}

func (j *SQLite) ListSnapshotsByRunID(ctx context.Context, runID string) ([]DaySnapshot, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, day, cash, market_value, capital, positions, deals
		FROM snapshots
		WHERE run_id = ?
		ORDER BY day ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DaySnapshot
	for rows.Next() {
		var s DaySnapshot
		if err := rows.Scan(&s.RunID, &s.Day, &s.Cash, &s.MarketValue, &s.Capital, &s.Positions, &s.Deals); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ExportBacktestOrg loads a run and its sell deals and returns the Org block.
func (j *SQLite) ExportBacktestOrg(ctx context.Context, runID string) (string, error) {
	run, err := j.GetBacktestRun(ctx, runID)
	if err != nil {
		return "", err
	}
	deals, err := j.ListDealsByRunID(ctx, runID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if err := run.RenderOrg(&b); err != nil {
		return "", err
	}
	var sells []DealRecord
	for _, d := range deals {
		if d.Side == "sell" {
			sells = append(sells, d)
		}
	}
	if len(sells) > 0 {
		b.WriteString("\n** Closed Deals\n")
		b.WriteString(FormatDealsOrg(sells))
		b.WriteString("\n")
	}
	return b.String(), nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
