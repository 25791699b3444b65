package store

// postgresSchema is applied statement by statement in one batch.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS price_history (
		id         BIGSERIAL PRIMARY KEY,
		instrument TEXT        NOT NULL,
		ts         TIMESTAMPTZ NOT NULL,
		price      NUMERIC     NOT NULL,
		bid        NUMERIC     NOT NULL,
		ask        NUMERIC     NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS price_history_instrument_ts
		ON price_history (instrument, ts DESC, id DESC)`,
	`CREATE TABLE IF NOT EXISTS order_history (
		id              TEXT PRIMARY KEY,
		client_order_id TEXT        NOT NULL DEFAULT '',
		instrument      TEXT        NOT NULL,
		side            TEXT        NOT NULL,
		type            TEXT        NOT NULL DEFAULT '',
		state           TEXT        NOT NULL,
		fill_price      NUMERIC     NOT NULL,
		fill_quantity   NUMERIC     NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS order_history_instrument_updated
		ON order_history (instrument, updated_at)`,
	`CREATE TABLE IF NOT EXISTS reconcile_cursors (
		instrument     TEXT PRIMARY KEY,
		last_timestamp TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS entries (
		order_id           TEXT PRIMARY KEY,
		client_order_id    TEXT        NOT NULL DEFAULT '',
		instrument         TEXT        NOT NULL,
		classification     TEXT        NOT NULL,
		profit_threshold   NUMERIC     NOT NULL,
		loss_threshold     NUMERIC     NOT NULL,
		price              NUMERIC     NOT NULL,
		quantity           NUMERIC     NOT NULL,
		created_at         TIMESTAMPTZ NOT NULL,
		brackets_placed_at TIMESTAMPTZ
	)`,
}

// sqliteSchema stores decimals as TEXT and times as unix nanoseconds.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS price_history (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	instrument TEXT    NOT NULL,
	ts         INTEGER NOT NULL,
	price      TEXT    NOT NULL,
	bid        TEXT    NOT NULL,
	ask        TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS price_history_instrument_ts ON price_history (instrument, ts DESC, id DESC);

CREATE TABLE IF NOT EXISTS order_history (
	id              TEXT PRIMARY KEY,
	client_order_id TEXT    NOT NULL DEFAULT '',
	instrument      TEXT    NOT NULL,
	side            TEXT    NOT NULL,
	type            TEXT    NOT NULL DEFAULT '',
	state           TEXT    NOT NULL,
	fill_price      TEXT    NOT NULL,
	fill_quantity   TEXT    NOT NULL,
	created_at      INTEGER NOT NULL,
	updated_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS order_history_instrument_updated ON order_history (instrument, updated_at);

CREATE TABLE IF NOT EXISTS reconcile_cursors (
	instrument     TEXT PRIMARY KEY,
	last_timestamp INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS entries (
	order_id           TEXT PRIMARY KEY,
	client_order_id    TEXT    NOT NULL DEFAULT '',
	instrument         TEXT    NOT NULL,
	classification     TEXT    NOT NULL,
	profit_threshold   TEXT    NOT NULL,
	loss_threshold     TEXT    NOT NULL,
	price              TEXT    NOT NULL,
	quantity           TEXT    NOT NULL,
	created_at         INTEGER NOT NULL,
	brackets_placed_at INTEGER
);
`
