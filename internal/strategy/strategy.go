// Package strategy implements the scalping decision for one instrument.
package strategy

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/rickgao/crypto-scalper/internal/instrument"
	"github.com/rickgao/crypto-scalper/internal/model"
	"github.com/rickgao/crypto-scalper/internal/portfolio"
	"github.com/rickgao/crypto-scalper/internal/signal"
)

// Outcome is the result of evaluating one instrument.
type Outcome string

const (
	OutcomeInsufficientData Outcome = "insufficient_data"
	OutcomeNoSignal         Outcome = "no_signal"
	OutcomeHeld             Outcome = "already_held"
	OutcomeInvalidQuote     Outcome = "invalid_quote"
	OutcomeZeroQuantity     Outcome = "zero_quantity"
	OutcomeUntradable       Outcome = "untradable"
	OutcomeBelowMinimum     Outcome = "below_min_order_size"
	OutcomeEnter            Outcome = "enter"
)

// Decision is what the strategy wants done for one instrument this cycle.
type Decision struct {
	Instrument model.Instrument
	Signal     model.TradeSignal
	Sizing     portfolio.Sizing
	Outcome    Outcome
	Reason     error              // ErrInsufficientData or ErrInvalidQuote for those skips
	Intent     *model.OrderIntent // set only for OutcomeEnter
}

// Intents returns the orders the decision asks for.
func (d Decision) Intents() []model.OrderIntent {
	if d.Intent == nil {
		return nil
	}
	return []model.OrderIntent{*d.Intent}
}

// PairLookup resolves order constraints for an instrument.
type PairLookup interface {
	Lookup(inst model.Instrument) (instrument.Pair, bool)
}

// Scalping buys into a fresh signal when the instrument is not already held.
type Scalping struct {
	mode   signal.Mode
	sizer  portfolio.Sizer
	guard  portfolio.Guard
	pairs  PairLookup
	logger *slog.Logger
}

// New creates the scalping strategy. pairs may be nil.
func New(mode signal.Mode, sizer portfolio.Sizer, guard portfolio.Guard, pairs PairLookup, logger *slog.Logger) *Scalping {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scalping{
		mode:   mode,
		sizer:  sizer,
		guard:  guard,
		pairs:  pairs,
		logger: logger,
	}
}

// Mode returns the signal mode in use.
func (s *Scalping) Mode() signal.Mode {
	return s.mode
}

// Evaluate runs signal, guard and sizing for inst. history is most-recent-first.
func (s *Scalping) Evaluate(cc *model.CycleContext, inst model.Instrument, history []model.PricePoint) Decision {
	logger := s.logger.With("instrument", inst.Symbol())
	d := Decision{Instrument: inst}

	d.Signal = s.mode.Compute(inst, history)
	switch {
	case d.Signal.Classification == model.ClassInsufficientData:
		d.Reason = fmt.Errorf("%w: have %d points, need %d", model.ErrInsufficientData, len(history), s.mode.MinPoints())
		logger.Info("skipping signal", "error", d.Reason)
		d.Outcome = OutcomeInsufficientData
		return d
	case !d.Signal.Classification.Actionable():
		logger.Debug("no signal",
			"short", d.Signal.Short.Decimal,
			"medium", d.Signal.Medium.Decimal,
			"long", d.Signal.Long.Decimal,
		)
		d.Outcome = OutcomeNoSignal
		return d
	}

	if s.guard.AlreadyHolds(cc, inst) {
		logger.Info("already holding, skipping buy", "classification", d.Signal.Classification)
		d.Outcome = OutcomeHeld
		return d
	}

	if q, ok := cc.QuoteFor(inst); ok {
		if err := q.Validate(); err != nil {
			logger.Info("skipping on invalid quote", "error", err)
			d.Reason = err
			d.Outcome = OutcomeInvalidQuote
			return d
		}
	}

	d.Sizing = s.sizer.Size(cc, inst)
	if !d.Sizing.Quantity.IsPositive() {
		logger.Info("target quantity is zero", "reason", d.Sizing.Reason)
		d.Outcome = OutcomeZeroQuantity
		return d
	}

	price := d.Sizing.Ask
	qty := d.Sizing.Quantity
	if s.pairs != nil {
		if pair, ok := s.pairs.Lookup(inst); ok {
			if !pair.Tradable() {
				logger.Info("instrument not tradable", "status", pair.Status)
				d.Outcome = OutcomeUntradable
				return d
			}
			price = pair.QuantizePrice(price)
			qty = pair.QuantizeQuantity(qty)
			if !pair.Admissible(qty) {
				logger.Info("quantity outside order size limits",
					"quantity", qty,
					"min", pair.MinOrderSize,
					"max", pair.MaxOrderSize,
				)
				d.Outcome = OutcomeBelowMinimum
				return d
			}
		}
	}

	d.Outcome = OutcomeEnter
	d.Intent = &model.OrderIntent{
		ClientOrderID: uuid.NewString(),
		Instrument:    inst,
		Side:          model.SideBuy,
		Price:         price,
		Quantity:      qty,
	}
	logger.Info("buy signal",
		"classification", d.Signal.Classification,
		"price", price,
		"quantity", qty,
		"portfolio_value", d.Sizing.PortfolioValue,
	)
	return d
}
