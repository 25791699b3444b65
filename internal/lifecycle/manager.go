package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/crypto-scalper/internal/instrument"
	"github.com/rickgao/crypto-scalper/internal/model"
)

// State is a step of the per-instrument order lifecycle.
type State string

const (
	StateIdle     State = "idle"
	StateSizing   State = "sizing"
	StateEntering State = "entering"
	StateExiting  State = "exiting"
)

// Bracket placement policies.
const (
	PlaceOnFill   = "on_fill"
	PlaceOnSubmit = "on_submit"
)

// Venue submits orders.
type Venue interface {
	PlaceOrder(ctx context.Context, intent model.OrderIntent) (model.OrderAck, error)
}

// EntryStore persists entry records.
type EntryStore interface {
	RecordEntry(ctx context.Context, e model.Entry) error
	LookupEntry(ctx context.Context, orderID string) (model.Entry, bool, error)
	ClaimBrackets(ctx context.Context, orderID string, at time.Time) (bool, error)
	ReleaseBrackets(ctx context.Context, orderID string) error
}

// PairLookup resolves order constraints for an instrument.
type PairLookup interface {
	Lookup(inst model.Instrument) (instrument.Pair, bool)
}

// Recorder observes order submissions.
type Recorder interface {
	ObserveOrder(side model.Side, kind model.OrderKind, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveOrder(model.Side, model.OrderKind, error) {}

// Config holds Manager configuration.
type Config struct {
	Flat        model.Thresholds
	Placement   string
	CallTimeout time.Duration
}

// Result describes what an Enter call did.
type Result struct {
	State    State // always StateIdle on return
	Entry    *model.OrderAck
	Brackets int // exit orders accepted by the venue
}

// Manager drives entry and bracket submission.
type Manager struct {
	cfg      Config
	venue    Venue
	store    EntryStore
	pairs    PairLookup
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewManager creates a lifecycle manager. pairs may be nil.
func NewManager(cfg Config, venue Venue, store EntryStore, pairs PairLookup, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Placement == "" {
		cfg.Placement = PlaceOnFill
	}
	return &Manager{
		cfg:      cfg,
		venue:    venue,
		store:    store,
		pairs:    pairs,
		recorder: nopRecorder{},
		logger:   logger,
		now:      time.Now,
	}
}

// SetRecorder installs an order observer.
func (m *Manager) SetRecorder(r Recorder) {
	if r != nil {
		m.recorder = r
	}
}

// Thresholds returns the exit distances for a classification.
func (m *Manager) Thresholds(c model.Classification) model.Thresholds {
	return ThresholdsFor(c, m.cfg.Flat)
}

// Enter submits the entry order and, under PlaceOnSubmit, its brackets.
// A submission failure returns the error with the lifecycle back at Idle.
func (m *Manager) Enter(ctx context.Context, intent model.OrderIntent, class model.Classification) (Result, error) {
	logger := m.logger.With("instrument", intent.Instrument.Symbol())
	res := Result{State: StateIdle}

	logger.Debug("lifecycle transition", "from", StateSizing, "to", StateEntering)
	ack, err := m.submit(ctx, intent)
	if err != nil {
		return res, fmt.Errorf("submit entry: %w", err)
	}
	res.Entry = &ack

	th := m.Thresholds(class)
	entry := model.Entry{
		OrderID:        ack.ID,
		ClientOrderID:  intent.ClientOrderID,
		Instrument:     intent.Instrument,
		Classification: class,
		Thresholds:     th,
		Price:          intent.Price,
		Quantity:       intent.Quantity,
		CreatedAt:      m.now().UTC(),
	}
	logger.Info("entry order accepted",
		"order_id", ack.ID,
		"price", intent.Price,
		"quantity", intent.Quantity,
		"classification", class,
	)

	if err := m.recordEntry(ctx, entry); err != nil {
		// Without a record no fill can ever be matched to this entry, so
		// the brackets go out now whatever the placement policy.
		logger.Error("entry not recorded, placing brackets at submit", "order_id", ack.ID, "error", err)
		res.Brackets = m.placeUnrecorded(ctx, entry)
		return res, fmt.Errorf("record entry %s: %w", ack.ID, err)
	}

	if m.cfg.Placement != PlaceOnSubmit {
		logger.Debug("brackets deferred until fill", "order_id", ack.ID)
		return res, nil
	}

	logger.Debug("lifecycle transition", "from", StateEntering, "to", StateExiting)
	res.Brackets, err = m.claimAndPlace(ctx, entry, intent.Price, intent.Quantity)
	return res, err
}

// placeUnrecorded submits brackets for an entry the store could not record.
func (m *Manager) placeUnrecorded(ctx context.Context, entry model.Entry) int {
	logger := m.logger.With("instrument", entry.Instrument.Symbol(), "order_id", entry.OrderID)

	b := BuildBrackets(entry.Instrument, entry.Price, entry.Quantity, entry.Thresholds, m.pair(entry.Instrument))
	placed, err := m.PlaceBrackets(ctx, b)
	if placed == 0 {
		logger.Error("entry is unrecorded and unbracketed", "error", err)
		return 0
	}
	if err != nil {
		logger.Error("bracket placement incomplete", "placed", placed, "error", err)
	}
	logger.Info("brackets placed", "accepted", placed, "quantity", entry.Quantity)
	return placed
}

// OnFill places brackets for a filled entry order that has none yet.
// Orders that are not filled buys, or that the engine did not enter, are ignored.
func (m *Manager) OnFill(ctx context.Context, order model.ExecutedOrder) error {
	if !order.IsFilled() || order.Side != model.SideBuy {
		return nil
	}
	logger := m.logger.With("instrument", order.Instrument.Symbol(), "order_id", order.ID)

	entry, ok, err := m.lookupEntry(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("lookup entry %s: %w", order.ID, err)
	}
	if !ok {
		logger.Info("filled buy has no entry record, not bracketing")
		return nil
	}
	if entry.BracketsPlaced() {
		logger.Debug("brackets already placed", "placed_at", entry.BracketsPlacedAt)
		return nil
	}

	price := order.FillPrice
	if !price.IsPositive() {
		price = entry.Price
	}
	qty := order.FillQuantity
	if !qty.IsPositive() {
		qty = entry.Quantity
	}

	logger.Debug("lifecycle transition", "from", StateEntering, "to", StateExiting)
	_, err = m.claimAndPlace(ctx, entry, price, qty)
	return err
}

// claimAndPlace claims the entry in the store, then submits both brackets.
// The claim is durable before any order goes out, so a fill seen again can
// never be bracketed twice. If every bracket is refused the claim is
// released and a later re-read of the fill retries.
func (m *Manager) claimAndPlace(ctx context.Context, entry model.Entry, price, qty decimal.Decimal) (int, error) {
	logger := m.logger.With("instrument", entry.Instrument.Symbol(), "order_id", entry.OrderID)

	claimed, err := m.claim(ctx, entry.OrderID)
	if err != nil {
		return 0, fmt.Errorf("claim brackets %s: %w", entry.OrderID, err)
	}
	if !claimed {
		logger.Debug("brackets already claimed")
		return 0, nil
	}

	b := BuildBrackets(entry.Instrument, price, qty, entry.Thresholds, m.pair(entry.Instrument))
	placed, err := m.PlaceBrackets(ctx, b)
	if err != nil {
		logger.Error("bracket placement incomplete", "placed", placed, "error", err)
	}
	if placed == 0 {
		if err := m.release(ctx, entry.OrderID); err != nil {
			logger.Error("entry left claimed without brackets", "error", err)
			return 0, fmt.Errorf("release brackets %s: %w", entry.OrderID, err)
		}
		return 0, nil
	}

	logger.Info("brackets placed",
		"take_profit", b.TakeProfit.Price,
		"stop_loss", b.StopLoss.Price,
		"quantity", qty,
		"accepted", placed,
	)
	return placed, nil
}

func (m *Manager) pair(inst model.Instrument) *instrument.Pair {
	if m.pairs == nil {
		return nil
	}
	if p, ok := m.pairs.Lookup(inst); ok {
		return &p
	}
	return nil
}

// PlaceBrackets submits both exit orders independently and returns how many
// were accepted along with any submission errors.
func (m *Manager) PlaceBrackets(ctx context.Context, b Brackets) (int, error) {
	var (
		placed int
		errs   []error
	)
	for _, intent := range b.Intents() {
		if _, err := m.submit(ctx, intent); err != nil {
			errs = append(errs, fmt.Errorf("%s exit: %w", intent.Kind(), err))
			continue
		}
		placed++
	}
	return placed, errors.Join(errs...)
}

func (m *Manager) submit(ctx context.Context, intent model.OrderIntent) (model.OrderAck, error) {
	ctx, cancel := m.callContext(ctx)
	defer cancel()

	ack, err := m.venue.PlaceOrder(ctx, intent)
	m.recorder.ObserveOrder(intent.Side, intent.Kind(), err)
	return ack, err
}

func (m *Manager) recordEntry(ctx context.Context, e model.Entry) error {
	ctx, cancel := m.callContext(ctx)
	defer cancel()
	return m.store.RecordEntry(ctx, e)
}

func (m *Manager) lookupEntry(ctx context.Context, orderID string) (model.Entry, bool, error) {
	ctx, cancel := m.callContext(ctx)
	defer cancel()
	return m.store.LookupEntry(ctx, orderID)
}

func (m *Manager) claim(ctx context.Context, orderID string) (bool, error) {
	ctx, cancel := m.callContext(ctx)
	defer cancel()
	return m.store.ClaimBrackets(ctx, orderID, m.now().UTC())
}

func (m *Manager) release(ctx context.Context, orderID string) error {
	ctx, cancel := m.callContext(ctx)
	defer cancel()
	return m.store.ReleaseBrackets(ctx, orderID)
}

func (m *Manager) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.cfg.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.cfg.CallTimeout)
}
