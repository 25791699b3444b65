// Package store persists price history, order history, reconciliation cursors
// and entry records.
//
// Two backends implement the same contract: PostgresStore (pgx) for
// deployments and SQLiteStore (modernc.org/sqlite) for single-node runs and
// tests. Every driver failure is reported wrapped in model.ErrStorageUnavailable.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/crypto-scalper/internal/config"
	"github.com/rickgao/crypto-scalper/internal/database"
	"github.com/rickgao/crypto-scalper/internal/model"
)

// Store is the persistence contract used by the engine.
type Store interface {
	// AppendPriceHistory records one quote observation.
	AppendPriceHistory(ctx context.Context, inst model.Instrument, q model.Quote) error

	// ReadPriceHistory returns up to limit points, most recent first.
	ReadPriceHistory(ctx context.Context, inst model.Instrument, limit int) ([]model.PricePoint, error)

	// PersistExecutedOrder inserts or updates an order keyed by its id.
	PersistExecutedOrder(ctx context.Context, inst model.Instrument, order model.ExecutedOrder) error

	// GetExecutedOrder returns a persisted order.
	GetExecutedOrder(ctx context.Context, id string) (model.ExecutedOrder, bool, error)

	// GetCursor returns the instrument's cursor, or nil when none is stored.
	GetCursor(ctx context.Context, inst model.Instrument) (*time.Time, error)

	// AdvanceCursor sets the instrument's cursor.
	AdvanceCursor(ctx context.Context, inst model.Instrument, t time.Time) error

	// RecordEntry stores an accepted entry order.
	RecordEntry(ctx context.Context, e model.Entry) error

	// LookupEntry returns the entry for an order id.
	LookupEntry(ctx context.Context, orderID string) (model.Entry, bool, error)

	// ClaimBrackets atomically marks an entry's brackets as placed. It
	// reports false when the entry is missing or was already claimed.
	ClaimBrackets(ctx context.Context, orderID string, at time.Time) (bool, error)

	// ReleaseBrackets clears a claim whose brackets were all refused.
	ReleaseBrackets(ctx context.Context, orderID string) error

	Ping(ctx context.Context) error
	Close() error
}

// Drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to the configured backend and ensures the schema exists.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Driver {
	case DriverPostgres:
		pool, err := database.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		s := NewPostgresStore(pool, logger)
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("connected to postgres", "host", cfg.Postgres.Host, "database", cfg.Postgres.Name)
		return s, nil

	case DriverSQLite:
		s, err := OpenSQLite(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		logger.Info("opened sqlite database", "path", cfg.SQLite.Path)
		return s, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", model.ErrStorageUnavailable, op, err)
}
