package journal

// Decimals are stored as TEXT so amounts come back exactly.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	asset TEXT NOT NULL,
	source TEXT NOT NULL,
	deemed_rate TEXT NOT NULL,
	events INTEGER NOT NULL,
	sells INTEGER NOT NULL,
	proceeds TEXT NOT NULL,
	realized_gain TEXT NOT NULL,
	final_balance TEXT NOT NULL,
	status TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS results (
	run_id TEXT NOT NULL REFERENCES runs(run_id),
	seq INTEGER NOT NULL,
	time DATETIME NOT NULL,
	direction TEXT NOT NULL,
	quantity TEXT NOT NULL,
	unit_price TEXT NOT NULL,
	total_cost TEXT NOT NULL,
	fee TEXT NOT NULL,
	running_balance TEXT NOT NULL,
	fifo_cost TEXT,
	deemed_cost TEXT,
	applicable_cost TEXT,
	realized_gain TEXT,
	deemed_applied INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_runs_asset ON runs(asset);
`
