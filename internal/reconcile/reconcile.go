// Package reconcile folds venue-executed orders back into local order history.
//
// Each instrument has a cursor holding the updated_at of the last order that
// was fully processed. Orders are fetched from the cursor (inclusive), handled
// in ascending updated_at order, and the cursor is advanced after each order is
// persisted, so a failure mid-batch leaves it at the last order that made it.
package reconcile

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/rickgao/crypto-scalper/internal/model"
)

// Venue fetches executed orders.
type Venue interface {
	FetchExecutedOrders(ctx context.Context, inst model.Instrument, since *time.Time) ([]model.ExecutedOrder, error)
}

// Store persists orders and cursors.
type Store interface {
	GetCursor(ctx context.Context, inst model.Instrument) (*time.Time, error)
	AdvanceCursor(ctx context.Context, inst model.Instrument, t time.Time) error
	PersistExecutedOrder(ctx context.Context, inst model.Instrument, order model.ExecutedOrder) error
}

// FillHandler reacts to a filled order before it is persisted.
type FillHandler interface {
	OnFill(ctx context.Context, order model.ExecutedOrder) error
}

// Recorder observes newly seen fills.
type Recorder interface {
	ObserveFill(inst model.Instrument, side model.Side)
}

type nopRecorder struct{}

func (nopRecorder) ObserveFill(model.Instrument, model.Side) {}

// Result summarizes one reconciliation pass.
type Result struct {
	Fetched   int
	Persisted int
	Filled    int        // filled orders newer than the starting cursor
	Cursor    *time.Time // cursor after the pass
}

// Reconciler runs the cursor protocol for one instrument at a time.
type Reconciler struct {
	venue       Venue
	store       Store
	fills       FillHandler
	recorder    Recorder
	callTimeout time.Duration
	logger      *slog.Logger
}

// New creates a Reconciler. fills may be nil to only record history.
func New(venue Venue, store Store, fills FillHandler, callTimeout time.Duration, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		venue:       venue,
		store:       store,
		fills:       fills,
		recorder:    nopRecorder{},
		callTimeout: callTimeout,
		logger:      logger,
	}
}

// SetRecorder installs a fill observer.
func (r *Reconciler) SetRecorder(rec Recorder) {
	if rec != nil {
		r.recorder = rec
	}
}

// Reconcile fetches orders since the instrument's cursor and processes them.
// On error the cursor is left at the last order that was persisted.
func (r *Reconciler) Reconcile(ctx context.Context, inst model.Instrument) (Result, error) {
	logger := r.logger.With("instrument", inst.Symbol())
	var res Result

	cursor, err := r.getCursor(ctx, inst)
	if err != nil {
		return res, fmt.Errorf("get cursor: %w", err)
	}
	res.Cursor = cursor

	orders, err := r.fetch(ctx, inst, cursor)
	if err != nil {
		return res, fmt.Errorf("fetch executed orders: %w", err)
	}
	res.Fetched = len(orders)

	SortOrders(orders)

	for _, o := range orders {
		if o.Instrument != inst {
			logger.Warn("skipping order for another instrument", "order_id", o.ID, "order_instrument", o.Instrument.Symbol())
			continue
		}
		isNew := cursor == nil || o.UpdatedAt.After(*cursor)

		if o.IsFilled() {
			if r.fills != nil {
				if err := r.fills.OnFill(ctx, o); err != nil {
					return res, fmt.Errorf("post-fill %s: %w", o.ID, err)
				}
			}
			if isNew {
				res.Filled++
				r.recorder.ObserveFill(inst, o.Side)
			}
		}

		if err := r.persist(ctx, inst, o); err != nil {
			return res, fmt.Errorf("persist order %s: %w", o.ID, err)
		}
		res.Persisted++

		if o.UpdatedAt.IsZero() {
			continue
		}
		if res.Cursor != nil && o.UpdatedAt.Before(*res.Cursor) {
			continue
		}
		if err := r.advance(ctx, inst, o.UpdatedAt); err != nil {
			return res, fmt.Errorf("advance cursor to %s: %w", o.UpdatedAt.Format(time.RFC3339Nano), err)
		}
		t := o.UpdatedAt
		res.Cursor = &t
	}

	if res.Fetched > 0 {
		logger.Info("reconciled orders",
			"fetched", res.Fetched,
			"persisted", res.Persisted,
			"filled", res.Filled,
			"cursor", res.Cursor,
		)
	}
	return res, nil
}

// SortOrders orders by ascending updated_at, breaking ties by id.
func SortOrders(orders []model.ExecutedOrder) {
	slices.SortStableFunc(orders, func(a, b model.ExecutedOrder) int {
		if c := a.UpdatedAt.Compare(b.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func (r *Reconciler) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.callTimeout)
}

func (r *Reconciler) getCursor(ctx context.Context, inst model.Instrument) (*time.Time, error) {
	ctx, cancel := r.callContext(ctx)
	defer cancel()
	return r.store.GetCursor(ctx, inst)
}

func (r *Reconciler) fetch(ctx context.Context, inst model.Instrument, since *time.Time) ([]model.ExecutedOrder, error) {
	ctx, cancel := r.callContext(ctx)
	defer cancel()
	return r.venue.FetchExecutedOrders(ctx, inst, since)
}

func (r *Reconciler) persist(ctx context.Context, inst model.Instrument, o model.ExecutedOrder) error {
	ctx, cancel := r.callContext(ctx)
	defer cancel()
	return r.store.PersistExecutedOrder(ctx, inst, o)
}

func (r *Reconciler) advance(ctx context.Context, inst model.Instrument, t time.Time) error {
	ctx, cancel := r.callContext(ctx)
	defer cancel()
	return r.store.AdvanceCursor(ctx, inst, t)
}
