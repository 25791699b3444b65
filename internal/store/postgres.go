package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/crypto-scalper/internal/model"
)

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresStore wraps an open pool.
func NewPostgresStore(db *pgxpool.Pool, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{db: db, logger: logger}
}

// Migrate creates missing tables and indexes in a single round trip.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	batch := &pgx.Batch{}
	for _, stmt := range postgresSchema {
		batch.Queue(stmt)
	}

	results := s.db.SendBatch(ctx, batch)
	defer results.Close()

	for range postgresSchema {
		if _, err := results.Exec(); err != nil {
			return storageErr("schema migration", err)
		}
	}
	return nil
}

func (s *PostgresStore) AppendPriceHistory(ctx context.Context, inst model.Instrument, q model.Quote) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO price_history (instrument, ts, price, bid, ask)
		VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric)`,
		inst.Symbol(), q.Timestamp.UTC(), q.Price.String(), q.Bid.String(), q.Ask.String(),
	)
	if err != nil {
		return storageErr("append price history", err)
	}
	return nil
}

func (s *PostgresStore) ReadPriceHistory(ctx context.Context, inst model.Instrument, limit int) ([]model.PricePoint, error) {
	rows, err := s.db.Query(ctx, `
		SELECT ts, price::text, bid::text, ask::text
		FROM price_history
		WHERE instrument = $1
		ORDER BY ts DESC, id DESC
		LIMIT $2`,
		inst.Symbol(), limit,
	)
	if err != nil {
		return nil, storageErr("read price history", err)
	}
	defer rows.Close()

	var out []model.PricePoint
	for rows.Next() {
		p := model.PricePoint{Instrument: inst}
		var cols [3]string
		if err := rows.Scan(&p.Timestamp, &cols[0], &cols[1], &cols[2]); err != nil {
			return nil, storageErr("scan price history", err)
		}
		if err := decimalColumns(cols[:], &p.Price, &p.Bid, &p.Ask); err != nil {
			return nil, storageErr("scan price history", err)
		}
		p.Timestamp = p.Timestamp.UTC()
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("read price history", err)
	}
	return out, nil
}

func (s *PostgresStore) PersistExecutedOrder(ctx context.Context, inst model.Instrument, o model.ExecutedOrder) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO order_history (id, client_order_id, instrument, side, type, state,
			fill_price, fill_quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8::numeric, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state,
			fill_price = EXCLUDED.fill_price,
			fill_quantity = EXCLUDED.fill_quantity,
			updated_at = EXCLUDED.updated_at`,
		o.ID, o.ClientOrderID, inst.Symbol(), string(o.Side), o.Type, o.State,
		o.FillPrice.String(), o.FillQuantity.String(), o.CreatedAt.UTC(), o.UpdatedAt.UTC(),
	)
	if err != nil {
		return storageErr("persist order", err)
	}
	return nil
}

func (s *PostgresStore) GetExecutedOrder(ctx context.Context, id string) (model.ExecutedOrder, bool, error) {
	var (
		o          model.ExecutedOrder
		instrument string
		side       string
		cols       [2]string
	)
	err := s.db.QueryRow(ctx, `
		SELECT id, client_order_id, instrument, side, type, state,
			fill_price::text, fill_quantity::text, created_at, updated_at
		FROM order_history WHERE id = $1`, id,
	).Scan(&o.ID, &o.ClientOrderID, &instrument, &side, &o.Type, &o.State,
		&cols[0], &cols[1], &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
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
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	return o, true, nil
}

func (s *PostgresStore) GetCursor(ctx context.Context, inst model.Instrument) (*time.Time, error) {
	var t time.Time
	err := s.db.QueryRow(ctx,
		`SELECT last_timestamp FROM reconcile_cursors WHERE instrument = $1`, inst.Symbol(),
	).Scan(&t)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get cursor", err)
	}
	t = t.UTC()
	return &t, nil
}

func (s *PostgresStore) AdvanceCursor(ctx context.Context, inst model.Instrument, t time.Time) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO reconcile_cursors (instrument, last_timestamp)
		VALUES ($1, $2)
		ON CONFLICT (instrument) DO UPDATE SET last_timestamp = EXCLUDED.last_timestamp`,
		inst.Symbol(), t.UTC(),
	)
	if err != nil {
		return storageErr("advance cursor", err)
	}
	return nil
}

func (s *PostgresStore) RecordEntry(ctx context.Context, e model.Entry) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO entries (order_id, client_order_id, instrument, classification,
			profit_threshold, loss_threshold, price, quantity, created_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8::numeric, $9)
		ON CONFLICT (order_id) DO NOTHING`,
		e.OrderID, e.ClientOrderID, e.Instrument.Symbol(), string(e.Classification),
		e.Thresholds.Profit.String(), e.Thresholds.Loss.String(),
		e.Price.String(), e.Quantity.String(), e.CreatedAt.UTC(),
	)
	if err != nil {
		return storageErr("record entry", err)
	}
	return nil
}

func (s *PostgresStore) LookupEntry(ctx context.Context, orderID string) (model.Entry, bool, error) {
	var (
		e          model.Entry
		instrument string
		class      string
		cols       [4]string
		placedAt   *time.Time
	)
	err := s.db.QueryRow(ctx, `
		SELECT order_id, client_order_id, instrument, classification,
			profit_threshold::text, loss_threshold::text, price::text, quantity::text,
			created_at, brackets_placed_at
		FROM entries WHERE order_id = $1`, orderID,
	).Scan(&e.OrderID, &e.ClientOrderID, &instrument, &class,
		&cols[0], &cols[1], &cols[2], &cols[3], &e.CreatedAt, &placedAt)
	if errors.Is(err, pgx.ErrNoRows) {
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
	e.CreatedAt = e.CreatedAt.UTC()
	if placedAt != nil {
		t := placedAt.UTC()
		e.BracketsPlacedAt = &t
	}
	return e, true, nil
}

func (s *PostgresStore) ClaimBrackets(ctx context.Context, orderID string, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE entries SET brackets_placed_at = $2
		WHERE order_id = $1 AND brackets_placed_at IS NULL`,
		orderID, at.UTC(),
	)
	if err != nil {
		return false, storageErr("claim brackets", err)
	}
	if tag.RowsAffected() == 0 {
		s.logger.Debug("entry already claimed or missing", "order_id", orderID)
		return false, nil
	}
	return true, nil
}

func (s *PostgresStore) ReleaseBrackets(ctx context.Context, orderID string) error {
	if _, err := s.db.Exec(ctx, `UPDATE entries SET brackets_placed_at = NULL WHERE order_id = $1`, orderID); err != nil {
		return storageErr("release brackets", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return storageErr("ping", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

var _ Store = (*PostgresStore)(nil)
