package journal

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)

	return j, path
}

func sellDeal(runID, id string, at time.Time, pnl float64) DealRecord {
	return DealRecord{
		RunID:         runID,
		DealID:        id,
		EntrustID:     "simu.2024-03-05_1",
		Code:          "000001.SZ",
		Name:          "PAB",
		Side:          "sell",
		Price:         9.5,
		Volume:        100,
		TradeCost:     5.95,
		Time:          at,
		Strategy:      "open-once",
		Reason:        "stop_loss",
		Pnl:           pnl,
		PnlRatio:      pnl / 1005 * 100,
		HoldingPeriod: 1,
	}
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	assert.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('deals','snapshots','backtest_runs')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		assert.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	assert.NoError(t, rows.Err())

	assert.True(t, found["deals"])
	assert.True(t, found["snapshots"])
	assert.True(t, found["backtest_runs"])
}

func TestSQLiteRecordDeal(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	at := time.Date(2024, 3, 5, 9, 33, 0, 0, time.UTC)
	rec := sellDeal("run-1", "simu.2024-03-05_1", at, -60.95)
	require.NoError(t, j.RecordDeal(rec))

	got, err := j.GetDeal("run-1", rec.DealID)
	require.NoError(t, err)
	assert.True(t, got.Time.Equal(rec.Time))
	got.Time = rec.Time
	assert.Equal(t, rec, got)

	_, err = j.GetDeal("run-1", "missing")
	assert.Error(t, err)

	// same deal id in another run is a different row
	require.NoError(t, j.RecordDeal(sellDeal("run-2", rec.DealID, at, 10)))
	assert.Error(t, j.RecordDeal(rec), "duplicate deal in one run")
}

func TestSQLiteListDeals(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	t0 := time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)
	require.NoError(t, j.RecordDeal(sellDeal("run-1", "d2", t0.Add(2*time.Hour), 20)))
	require.NoError(t, j.RecordDeal(sellDeal("run-1", "d1", t0, -10)))
	require.NoError(t, j.RecordDeal(sellDeal("run-2", "d3", t0.Add(time.Hour), 5)))

	deals, err := j.ListDealsByRunID(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, deals, 2)
	assert.Equal(t, "d1", deals[0].DealID)
	assert.Equal(t, "d2", deals[1].DealID)

	between, err := j.ListDealsBetween(t0, t0.Add(90*time.Minute))
	require.NoError(t, err)
	require.Len(t, between, 2)
	assert.Equal(t, "d1", between[0].DealID)
	assert.Equal(t, "d3", between[1].DealID)

	byCode, err := j.RealizedByCode("run-1")
	require.NoError(t, err)
	assert.InDelta(t, 10.0, byCode["000001.SZ"], 1e-9)
}

func TestSQLiteSnapshots(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	day1 := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	require.NoError(t, j.RecordSnapshot(DaySnapshot{RunID: "r", Day: day2, Cash: 199939.05, Capital: 199939.05, Deals: 1}))
	require.NoError(t, j.RecordSnapshot(DaySnapshot{RunID: "r", Day: day1, Cash: 198995, MarketValue: 940, Capital: 199935, Positions: 1, Deals: 1}))

	snaps, err := j.ListSnapshotsByRunID(context.Background(), "r")
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.True(t, snaps[0].Day.Equal(day1))
	assert.Equal(t, 1, snaps[0].Positions)
	assert.InDelta(t, 940.0, snaps[0].MarketValue, 1e-9)
	assert.InDelta(t, 199939.05, snaps[1].Capital, 1e-9)
}

func TestSQLiteBacktestRun(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })
	ctx := context.Background()

	run := BacktestRun{
		RunID:        "01HXRUN",
		Created:      time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC),
		Granularity:  "tick",
		Dataset:      "testdata/cn",
		Codes:        []string{"000001.SZ", "600000.SH"},
		Strategy:     "open-once",
		Config:       []byte("account:\n  cash: 200000\n"),
		Stops:        "stop_loss=fixed[-5]",
		Start:        time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		End:          time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		TradeDays:    2,
		Deals:        2,
		Trades:       1,
		Losses:       1,
		StartCapital: 200000,
		EndCapital:   199939.05,
		NetPL:        -60.95,
		ReturnPct:    -0.030475,
		MaxDDPct:     0.0325,
	}
	require.NoError(t, j.RecordBacktest(ctx, run))
	require.NoError(t, j.RecordDeal(sellDeal(run.RunID, "simu.2024-03-05_1", run.End.Add(9*time.Hour), -60.95)))

	got, err := j.GetBacktestRun(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, run.Codes, got.Codes)
	assert.Equal(t, run.Config, got.Config)
	assert.True(t, got.Start.Equal(run.Start))
	assert.Equal(t, run.Losses, got.Losses)
	assert.InDelta(t, run.EndCapital, got.EndCapital, 1e-9)

	_, err = j.GetBacktestRun(ctx, "nope")
	assert.Error(t, err)

	org, err := j.ExportBacktestOrg(ctx, run.RunID)
	require.NoError(t, err)
	assert.Contains(t, org, ":RUN_ID:       01HXRUN")
	assert.Contains(t, org, ":CODES:        000001.SZ 600000.SH")
	assert.Contains(t, org, "** Closed Deals")
	assert.Contains(t, org, "*** Deal: 000001.SZ sell (1)")
}
