package instrument

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/crypto-scalper/internal/api"
	"github.com/rickgao/crypto-scalper/internal/model"
)

// Source fetches trading pairs from the venue.
type Source interface {
	GetTradingPairs(ctx context.Context, symbols ...string) ([]api.APITradingPair, error)
}

// Config holds Registry configuration.
type Config struct {
	ReconcileInterval time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ReconcileInterval: 30 * time.Minute,
	}
}

// Registry caches trading pairs for the configured instruments.
type Registry struct {
	cfg         Config
	source      Source
	instruments []model.Instrument
	logger      *slog.Logger

	state *registryState

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRegistry creates a new trading-pair registry.
func NewRegistry(cfg Config, source Source, instruments []model.Instrument, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = DefaultConfig().ReconcileInterval
	}

	return &Registry{
		cfg:         cfg,
		source:      source,
		instruments: instruments,
		logger:      logger,
		state:       newState(),
	}
}

// Start loads the pairs (blocking) then reconciles in the background.
func (r *Registry) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	if err := r.initialSync(r.ctx); err != nil {
		r.cancel()
		return err
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.reconciliationLoop(r.ctx)
	}()

	r.logger.Info("instrument registry started", "pairs", r.state.size())
	return nil
}

// Stop gracefully shuts down.
func (r *Registry) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("instrument registry stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Lookup returns the pair for an instrument.
func (r *Registry) Lookup(inst model.Instrument) (Pair, bool) {
	return r.state.get(inst.Symbol())
}

// Pairs returns a copy of all known pairs.
func (r *Registry) Pairs() []Pair {
	return r.state.all()
}

// LastSync returns the time of the last successful sync.
func (r *Registry) LastSync() time.Time {
	return r.state.lastSync()
}

func (r *Registry) symbols() []string {
	out := make([]string, len(r.instruments))
	for i, inst := range r.instruments {
		out[i] = inst.Symbol()
	}
	return out
}
