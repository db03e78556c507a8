package database

import "fmt"

// historySchema holds the daily price series. One row per symbol per
// trading day; OHLC and volume are nullable because upstream sources
// occasionally report partial rows.
const historySchema = `
CREATE TABLE IF NOT EXISTS daily_prices (
    symbol TEXT NOT NULL,
    date INTEGER NOT NULL,
    open REAL,
    high REAL,
    low REAL,
    close REAL,
    volume INTEGER,
    PRIMARY KEY (symbol, date)
);

CREATE INDEX IF NOT EXISTS idx_daily_prices_date ON daily_prices(date);
`

// cacheSchema holds msgpack-encoded provider responses, one table per
// upstream source so TTLs and purges stay independent.
const cacheSchema = `
CREATE TABLE IF NOT EXISTS yahoo_daily (
    cache_key TEXT PRIMARY KEY,
    data BLOB NOT NULL,
    expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_yahoo_daily_expires ON yahoo_daily(expires_at);

CREATE TABLE IF NOT EXISTS alphavantage_daily (
    cache_key TEXT PRIMARY KEY,
    data BLOB NOT NULL,
    expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_alphavantage_daily_expires ON alphavantage_daily(expires_at);
`

// Migrate applies the schema for this database. Statements are
// idempotent, so calling Migrate on every startup is safe.
func (db *DB) Migrate() error {
	var schema string

	switch db.name {
	case "history":
		schema = historySchema
	case "cache":
		schema = cacheSchema
	default:
		return fmt.Errorf("no schema defined for database %q", db.name)
	}

	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to migrate database %s: %w", db.name, err)
	}

	return nil
}
