package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/crypto-scalper/internal/lifecycle"
	"github.com/rickgao/crypto-scalper/internal/metrics"
	"github.com/rickgao/crypto-scalper/internal/model"
	"github.com/rickgao/crypto-scalper/internal/portfolio"
	"github.com/rickgao/crypto-scalper/internal/reconcile"
	"github.com/rickgao/crypto-scalper/internal/strategy"
)

// Venue is the subset of the venue client the engine reads from.
type Venue interface {
	FetchQuotes(ctx context.Context, instruments []model.Instrument) ([]model.Quote, error)
	FetchHoldings(ctx context.Context) ([]model.Holding, error)
	FetchAccountBalance(ctx context.Context) (model.Account, error)
}

// HistoryStore reads and appends price history.
type HistoryStore interface {
	AppendPriceHistory(ctx context.Context, inst model.Instrument, q model.Quote) error
	ReadPriceHistory(ctx context.Context, inst model.Instrument, limit int) ([]model.PricePoint, error)
}

// Reconciler folds executed orders back into history.
type Reconciler interface {
	Reconcile(ctx context.Context, inst model.Instrument) (reconcile.Result, error)
}

// Stages reported in per-instrument error metrics.
const (
	StageQuote     = "quote"
	StageHistory   = "history"
	StageEntry     = "entry"
	StageReconcile = "reconcile"
	StagePanic     = "panic"
)

// Config holds engine configuration.
type Config struct {
	Instruments  []model.Instrument
	HistoryLimit int
	CallTimeout  time.Duration
	Concurrency  int
}

// CycleSummary describes a finished cycle.
type CycleSummary struct {
	Number         uint64
	StartedAt      time.Time
	Duration       time.Duration
	Instruments    int
	Entered        int
	Errors         int
	Traded         bool // false when the quote snapshot failed
	PortfolioValue decimal.NullDecimal
}

// Engine orchestrates polling cycles.
type Engine struct {
	cfg        Config
	venue      Venue
	history    HistoryStore
	strategy   *strategy.Scalping
	lifecycle  *lifecycle.Manager
	reconciler Reconciler
	metrics    *metrics.Metrics
	logger     *slog.Logger

	cycles atomic.Uint64

	mu   sync.RWMutex
	last *CycleSummary
}

// New creates an Engine. metrics may be nil.
func New(
	cfg Config,
	venue Venue,
	history HistoryStore,
	strat *strategy.Scalping,
	mgr *lifecycle.Manager,
	rec Reconciler,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = strat.Mode().MinPoints()
	}
	return &Engine{
		cfg:        cfg,
		venue:      venue,
		history:    history,
		strategy:   strat,
		lifecycle:  mgr,
		reconciler: rec,
		metrics:    m,
		logger:     logger,
	}
}

// LastCycle returns the summary of the most recent cycle.
func (e *Engine) LastCycle() (CycleSummary, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.last == nil {
		return CycleSummary{}, false
	}
	return *e.last, true
}

// RunCycle runs one cycle over every configured instrument.
func (e *Engine) RunCycle(ctx context.Context) (CycleSummary, error) {
	if err := ctx.Err(); err != nil {
		return CycleSummary{}, err
	}

	cc := e.snapshot(ctx)
	summary := CycleSummary{
		Number:      cc.Number,
		StartedAt:   cc.StartedAt,
		Instruments: len(e.cfg.Instruments),
		Traded:      cc.Quotes != nil,
	}
	if v, ok := portfolio.PortfolioValue(cc); ok {
		summary.PortfolioValue = decimal.NewNullDecimal(v)
		e.metrics.SetPortfolioValue(v.InexactFloat64())
	}

	var entered, failed atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(e.cfg.Concurrency)
	for _, inst := range e.cfg.Instruments {
		g.Go(func() error {
			r := e.processInstrument(ctx, cc, inst)
			if r.entered {
				entered.Add(1)
			}
			if r.errors > 0 {
				failed.Add(int64(r.errors))
			}
			return nil
		})
	}
	_ = g.Wait()

	summary.Entered = int(entered.Load())
	summary.Errors = int(failed.Load())
	summary.Duration = time.Since(cc.StartedAt)
	e.metrics.ObserveCycle(summary.Duration)

	e.mu.Lock()
	e.last = &summary
	e.mu.Unlock()

	e.logger.Info("cycle complete",
		"cycle", summary.Number,
		"instruments", summary.Instruments,
		"entered", summary.Entered,
		"errors", summary.Errors,
		"traded", summary.Traded,
		"duration", summary.Duration,
	)
	return summary, nil
}

// snapshot reads venue state once for the whole cycle. Failures degrade the
// snapshot instead of aborting: missing quotes disable trading, missing
// holdings make the guard fail open and missing cash zeroes sizing.
//
// Holdings are read before quotes so that every held asset is priced, not
// just the configured instruments; otherwise portfolio value would omit them.
func (e *Engine) snapshot(ctx context.Context) *model.CycleContext {
	cc := &model.CycleContext{
		Number:    e.cycles.Add(1),
		StartedAt: time.Now(),
	}
	logger := e.logger.With("cycle", cc.Number)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		callCtx, cancel := e.callContext(ctx)
		defer cancel()

		acct, err := e.venue.FetchAccountBalance(callCtx)
		if err != nil {
			logger.Warn("account fetch failed", "error", err)
			return
		}
		cc.Cash = decimal.NewNullDecimal(acct.BuyingPower)
	}()

	holdings, err := e.fetchHoldings(ctx)
	if err != nil {
		logger.Warn("holdings fetch failed", "error", err)
	} else {
		cc.Holdings = holdings
		cc.HoldingsLoaded = true
	}

	quoted := QuotedInstruments(e.cfg.Instruments, cc.Holdings)
	quotes, err := e.fetchQuotes(ctx, quoted)
	if err != nil && len(quoted) > len(e.cfg.Instruments) {
		// A held asset the venue cannot quote must not stop trading.
		logger.Warn("quote snapshot with held assets failed, retrying configured instruments only", "error", err)
		quotes, err = e.fetchQuotes(ctx, e.cfg.Instruments)
	}
	if err != nil {
		logger.Warn("quote snapshot failed, not trading this cycle", "error", err)
	} else {
		cc.Quotes = make(map[string]model.Quote, len(quotes))
		for _, q := range quotes {
			cc.Quotes[q.Instrument.Symbol()] = q
		}
	}

	wg.Wait()
	return cc
}

// QuotedInstruments returns the configured instruments followed by the pair
// of every other held asset with a positive quantity.
func QuotedInstruments(configured []model.Instrument, holdings []model.Holding) []model.Instrument {
	out := make([]model.Instrument, 0, len(configured)+len(holdings))
	seen := make(map[string]bool, len(configured)+len(holdings))
	for _, inst := range configured {
		if !seen[inst.Symbol()] {
			seen[inst.Symbol()] = true
			out = append(out, inst)
		}
	}
	for _, h := range holdings {
		if !h.Quantity.IsPositive() || strings.EqualFold(h.AssetCode, model.DefaultQuoteAsset) {
			continue
		}
		inst := h.Instrument()
		if !seen[inst.Symbol()] {
			seen[inst.Symbol()] = true
			out = append(out, inst)
		}
	}
	return out
}

func (e *Engine) fetchHoldings(ctx context.Context) ([]model.Holding, error) {
	ctx, cancel := e.callContext(ctx)
	defer cancel()
	return e.venue.FetchHoldings(ctx)
}

func (e *Engine) fetchQuotes(ctx context.Context, instruments []model.Instrument) ([]model.Quote, error) {
	ctx, cancel := e.callContext(ctx)
	defer cancel()
	return e.venue.FetchQuotes(ctx, instruments)
}

type instrumentResult struct {
	entered bool
	errors  int
}

// processInstrument runs the strictly sequential per-instrument pipeline.
func (e *Engine) processInstrument(ctx context.Context, cc *model.CycleContext, inst model.Instrument) (res instrumentResult) {
	logger := e.logger.With("instrument", inst.Symbol(), "cycle", cc.Number)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic processing instrument", "panic", fmt.Sprint(r))
			e.metrics.ObserveError(inst, StagePanic)
			res.errors++
		}
	}()

	if cc.Quotes != nil {
		if err := e.trade(ctx, cc, inst, logger, &res); err != nil {
			res.errors++
		}
	}

	if e.reconciler != nil {
		if _, err := e.reconciler.Reconcile(ctx, inst); err != nil {
			logger.Error("reconciliation failed", "error", err)
			e.metrics.ObserveError(inst, StageReconcile)
			res.errors++
		}
	}
	return res
}

// trade appends the quote, reads history, evaluates and submits an entry.
func (e *Engine) trade(ctx context.Context, cc *model.CycleContext, inst model.Instrument, logger *slog.Logger, res *instrumentResult) error {
	q, ok := cc.QuoteFor(inst)
	if !ok {
		logger.Info("no quote for instrument, skipping")
		e.metrics.ObserveDecision(inst, "no_quote")
		return nil
	}
	if err := q.Validate(); err != nil {
		logger.Info("invalid quote, skipping", "error", err)
		e.metrics.ObserveDecision(inst, string(strategy.OutcomeInvalidQuote))
		return nil
	}

	if err := e.appendHistory(ctx, inst, q); err != nil {
		logger.Error("append price history failed", "error", err)
		e.metrics.ObserveError(inst, StageHistory)
		return err
	}

	history, err := e.readHistory(ctx, inst)
	if err != nil {
		logger.Error("read price history failed", "error", err)
		e.metrics.ObserveError(inst, StageHistory)
		return err
	}

	d := e.strategy.Evaluate(cc, inst, history)
	e.metrics.ObserveDecision(inst, string(d.Outcome))
	if d.Intent == nil {
		return nil
	}

	result, err := e.lifecycle.Enter(ctx, *d.Intent, d.Signal.Classification)
	res.entered = result.Entry != nil
	if err != nil {
		logger.Error("entry failed", "error", err)
		e.metrics.ObserveError(inst, StageEntry)
		return err
	}
	return nil
}

func (e *Engine) appendHistory(ctx context.Context, inst model.Instrument, q model.Quote) error {
	ctx, cancel := e.callContext(ctx)
	defer cancel()
	if q.Timestamp.IsZero() {
		q.Timestamp = time.Now().UTC()
	}
	return e.history.AppendPriceHistory(ctx, inst, q)
}

func (e *Engine) readHistory(ctx context.Context, inst model.Instrument) ([]model.PricePoint, error) {
	ctx, cancel := e.callContext(ctx)
	defer cancel()
	return e.history.ReadPriceHistory(ctx, inst, e.cfg.HistoryLimit)
}

func (e *Engine) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.cfg.CallTimeout)
}
