package sqlite

// Schema is applied on every open; all statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	user_id       TEXT PRIMARY KEY,
	email         TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL DEFAULT '',
	role          TEXT NOT NULL DEFAULT 'user',
	created_at    INTEGER NOT NULL,
	modified_at   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS user_kv (
	user_id    TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	version    INTEGER NOT NULL DEFAULT 1,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (user_id, key)
);

CREATE TABLE IF NOT EXISTS portfolios (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	name             TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	total_value      REAL NOT NULL DEFAULT 0,
	total_investment REAL NOT NULL DEFAULT 0,
	created_at       INTEGER NOT NULL,
	refreshed_at     INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_portfolios_user ON portfolios (user_id, created_at);

CREATE TABLE IF NOT EXISTS positions (
	portfolio_id     TEXT NOT NULL,
	symbol           TEXT NOT NULL,
	quantity         INTEGER NOT NULL CHECK (quantity > 0),
	average_cost     REAL NOT NULL,
	invested_capital REAL NOT NULL,
	current_value    REAL NOT NULL,
	created_at       INTEGER NOT NULL,
	updated_at       INTEGER NOT NULL,
	version          INTEGER NOT NULL,
	PRIMARY KEY (portfolio_id, symbol)
);

CREATE TABLE IF NOT EXISTS ledger (
	id           TEXT PRIMARY KEY,
	portfolio_id TEXT NOT NULL,
	symbol       TEXT NOT NULL,
	side         TEXT NOT NULL CHECK (side IN ('buy', 'sell')),
	quantity     INTEGER NOT NULL CHECK (quantity > 0),
	price        REAL NOT NULL CHECK (price > 0),
	total_amount REAL NOT NULL,
	ts           INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ledger_portfolio_ts ON ledger (portfolio_id, ts, id);

CREATE TRIGGER IF NOT EXISTS ledger_immutable
BEFORE UPDATE ON ledger
BEGIN
	SELECT RAISE(ABORT, 'ledger entries are immutable');
END;

CREATE TABLE IF NOT EXISTS stocks (
	symbol         TEXT PRIMARY KEY,
	name           TEXT NOT NULL DEFAULT '',
	current_price  REAL NOT NULL,
	previous_close REAL NOT NULL DEFAULT 0,
	market_cap     REAL NOT NULL DEFAULT 0,
	volume         REAL NOT NULL DEFAULT 0,
	last_updated   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS watchlist (
	user_id  TEXT NOT NULL,
	symbol   TEXT NOT NULL,
	added_at INTEGER NOT NULL,
	PRIMARY KEY (user_id, symbol)
);
`
