package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rickgao/crypto-scalper/internal/model"
)

// SQLiteStore implements Store on an embedded SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storageErr("opening db", err)
	}
	// One writer at a time; engine workers queue here instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	// WAL mode for concurrent reads
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, storageErr("setting WAL mode", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, storageErr("setting busy timeout", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, storageErr("schema migration", err)
	}

	return &SQLiteStore{db: db}, nil
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func (s *SQLiteStore) AppendPriceHistory(ctx context.Context, inst model.Instrument, q model.Quote) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO price_history (instrument, ts, price, bid, ask)
		VALUES (?, ?, ?, ?, ?)`,
		inst.Symbol(), toNanos(q.Timestamp), q.Price.String(), q.Bid.String(), q.Ask.String(),
	)
	if err != nil {
		return storageErr("append price history", err)
	}
	return nil
}

func (s *SQLiteStore) ReadPriceHistory(ctx context.Context, inst model.Instrument, limit int) ([]model.PricePoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, price, bid, ask
		FROM price_history
		WHERE instrument = ?
		ORDER BY ts DESC, id DESC
		LIMIT ?`,
		inst.Symbol(), limit,
	)
	if err != nil {
		return nil, storageErr("read price history", err)
	}
	defer rows.Close()

	var out []model.PricePoint
	for rows.Next() {
		p := model.PricePoint{Instrument: inst}
		var (
			ts   int64
			cols [3]string
		)
		if err := rows.Scan(&ts, &cols[0], &cols[1], &cols[2]); err != nil {
			return nil, storageErr("scan price history", err)
		}
		if err := decimalColumns(cols[:], &p.Price, &p.Bid, &p.Ask); err != nil {
			return nil, storageErr("scan price history", err)
		}
		p.Timestamp = fromNanos(ts)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("read price history", err)
	}
	return out, nil
}

func (s *SQLiteStore) PersistExecutedOrder(ctx context.Context, inst model.Instrument, o model.ExecutedOrder) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO order_history (id, client_order_id, instrument, side, type, state,
			fill_price, fill_quantity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			fill_price = excluded.fill_price,
			fill_quantity = excluded.fill_quantity,
			updated_at = excluded.updated_at`,
		o.ID, o.ClientOrderID, inst.Symbol(), string(o.Side), o.Type, o.State,
		o.FillPrice.String(), o.FillQuantity.String(), toNanos(o.CreatedAt), toNanos(o.UpdatedAt),
	)
	if err != nil {
		return storageErr("persist order", err)
	}
	return nil
}

func (s *SQLiteStore) GetExecutedOrder(ctx context.Context, id string) (model.ExecutedOrder, bool, error) {
	var (
		o                  model.ExecutedOrder
		instrument, side   string
		cols               [2]string
		created, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, client_order_id, instrument, side, type, state,
			fill_price, fill_quantity, created_at, updated_at
		FROM order_history WHERE id = ?`, id,
	).Scan(&o.ID, &o.ClientOrderID, &instrument, &side, &o.Type, &o.State,
		&cols[0], &cols[1], &created, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ExecutedOrder{}, false, nil
	}
	if err != nil {
		return model.ExecutedOrder{}, false, storageErr("get order", err)
	}

	if o.Instrument, err = parseInstrument(instrument); err != nil {
		return model.ExecutedOrder{}, false, storageErr("get order", err)
	}
	if err := decimalColumns(cols[:], &o.FillPrice, &o.FillQuantity); err != nil {
		return model.ExecutedOrder{}, false, storageErr("get order", err)
	}
	o.Side = model.Side(side)
	o.CreatedAt = fromNanos(created)
	o.UpdatedAt = fromNanos(updatedAt)
	return o, true, nil
}

func (s *SQLiteStore) GetCursor(ctx context.Context, inst model.Instrument) (*time.Time, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT last_timestamp FROM reconcile_cursors WHERE instrument = ?`, inst.Symbol(),
	).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get cursor", err)
	}
	t := fromNanos(n)
	return &t, nil
}

func (s *SQLiteStore) AdvanceCursor(ctx context.Context, inst model.Instrument, t time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reconcile_cursors (instrument, last_timestamp)
		VALUES (?, ?)
		ON CONFLICT(instrument) DO UPDATE SET last_timestamp = excluded.last_timestamp`,
		inst.Symbol(), toNanos(t),
	)
	if err != nil {
		return storageErr("advance cursor", err)
	}
	return nil
}

func (s *SQLiteStore) RecordEntry(ctx context.Context, e model.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO entries (order_id, client_order_id, instrument, classification,
			profit_threshold, loss_threshold, price, quantity, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.OrderID, e.ClientOrderID, e.Instrument.Symbol(), string(e.Classification),
		e.Thresholds.Profit.String(), e.Thresholds.Loss.String(),
		e.Price.String(), e.Quantity.String(), toNanos(e.CreatedAt),
	)
	if err != nil {
		return storageErr("record entry", err)
	}
	return nil
}

func (s *SQLiteStore) LookupEntry(ctx context.Context, orderID string) (model.Entry, bool, error) {
	var (
		e                 model.Entry
		instrument, class string
		cols              [4]string
		created           int64
		placedAt          sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT order_id, client_order_id, instrument, classification,
			profit_threshold, loss_threshold, price, quantity, created_at, brackets_placed_at
		FROM entries WHERE order_id = ?`, orderID,
	).Scan(&e.OrderID, &e.ClientOrderID, &instrument, &class,
		&cols[0], &cols[1], &cols[2], &cols[3], &created, &placedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Entry{}, false, nil
	}
	if err != nil {
		return model.Entry{}, false, storageErr("lookup entry", err)
	}

	if e.Instrument, err = parseInstrument(instrument); err != nil {
		return model.Entry{}, false, storageErr("lookup entry", err)
	}
	if err := decimalColumns(cols[:], &e.Thresholds.Profit, &e.Thresholds.Loss, &e.Price, &e.Quantity); err != nil {
		return model.Entry{}, false, storageErr("lookup entry", err)
	}
	e.Classification = model.Classification(class)
	e.CreatedAt = fromNanos(created)
	if placedAt.Valid {
		t := fromNanos(placedAt.Int64)
		e.BracketsPlacedAt = &t
	}
	return e, true, nil
}

func (s *SQLiteStore) ClaimBrackets(ctx context.Context, orderID string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE entries SET brackets_placed_at = ?
		WHERE order_id = ? AND brackets_placed_at IS NULL`,
		toNanos(at), orderID,
	)
	if err != nil {
		return false, storageErr("claim brackets", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("claim brackets", err)
	}
	return n == 1, nil
}

func (s *SQLiteStore) ReleaseBrackets(ctx context.Context, orderID string) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE entries SET brackets_placed_at = NULL WHERE order_id = ?`, orderID); err != nil {
		return storageErr("release brackets", err)
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return storageErr("ping", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
