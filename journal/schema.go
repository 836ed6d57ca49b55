package journal

const Schema = `
CREATE TABLE IF NOT EXISTS deals (
	deal_id TEXT NOT NULL,
	run_id TEXT NOT NULL,
	entrust_id TEXT NOT NULL,
	code TEXT NOT NULL,
	name TEXT NOT NULL,
	side TEXT NOT NULL,
	price REAL NOT NULL,
	volume INTEGER NOT NULL,
	trade_cost REAL NOT NULL,
	time DATETIME NOT NULL,
	strategy TEXT NOT NULL,
	reason TEXT NOT NULL,
	pnl REAL NOT NULL,
	pnl_ratio REAL NOT NULL,
	holding_period INTEGER NOT NULL,
	PRIMARY KEY (run_id, deal_id)
);

CREATE INDEX IF NOT EXISTS idx_deals_time ON deals(time);

CREATE TABLE IF NOT EXISTS snapshots (
	run_id TEXT NOT NULL,
	day DATETIME NOT NULL,
	cash REAL NOT NULL,
	market_value REAL NOT NULL,
	capital REAL NOT NULL,
	positions INTEGER NOT NULL,
	deals INTEGER NOT NULL,
	PRIMARY KEY (run_id, day)
);

CREATE TABLE IF NOT EXISTS backtest_runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	granularity TEXT NOT NULL,
	dataset TEXT NOT NULL,
	codes TEXT NOT NULL,
	strategy TEXT NOT NULL,
	config BLOB,
	stops TEXT NOT NULL,
	start_day DATETIME NOT NULL,
	end_day DATETIME NOT NULL,
	trade_days INTEGER NOT NULL,
	aborted_days INTEGER NOT NULL,
	deals INTEGER NOT NULL,
	trades INTEGER NOT NULL,
	wins INTEGER NOT NULL,
	losses INTEGER NOT NULL,
	start_capital REAL NOT NULL,
	end_capital REAL NOT NULL,
	net_pl REAL NOT NULL,
	return_pct REAL NOT NULL,
	win_rate REAL NOT NULL,
	profit_factor REAL NOT NULL,
	max_dd_pct REAL NOT NULL
);
`
