package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// CycleRunner runs one trading cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) error
}

// CycleRunnerFunc is a function adapter for CycleRunner.
type CycleRunnerFunc func(ctx context.Context) error

func (f CycleRunnerFunc) RunCycle(ctx context.Context) error {
	return f(ctx)
}

// Config holds poller configuration.
type Config struct {
	Interval  time.Duration // Time between cycle starts (default: 10s)
	MaxCycles int           // Stop after this many cycles, 0 = unlimited
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 10 * time.Second,
	}
}

// Poller periodically runs trading cycles.
type Poller struct {
	cfg    Config
	runner CycleRunner
	logger *slog.Logger

	cycles atomic.Int64
	failed atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan struct{}
}

// New creates a new Poller.
func New(cfg Config, runner CycleRunner, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	return &Poller{
		cfg:    cfg,
		runner: runner,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("cycle poller started",
		"interval", p.cfg.Interval,
		"max_cycles", p.cfg.MaxCycles,
	)

	return nil
}

// Done is closed when the loop exits, either because MaxCycles was reached
// or because the poller was stopped.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

// Cycles returns the number of cycles run so far.
func (p *Poller) Cycles() int64 {
	return p.cycles.Load()
}

// Failed returns the number of cycles that returned an error.
func (p *Poller) Failed() int64 {
	return p.failed.Load()
}

// Stop gracefully shuts down the poller. An in-flight cycle is cancelled.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("cycle poller stopped", "cycles", p.cycles.Load())
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the main polling loop.
func (p *Poller) run() {
	defer p.wg.Done()
	defer close(p.done)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Run immediately on start.
	if !p.runOnce() {
		return
	}

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			if !p.runOnce() {
				return
			}
		}
	}
}

// runOnce runs a single cycle and reports whether the loop should continue.
func (p *Poller) runOnce() bool {
	if p.ctx.Err() != nil {
		return false
	}

	n := p.cycles.Add(1)
	if err := p.runner.RunCycle(p.ctx); err != nil {
		p.failed.Add(1)
		p.logger.Warn("cycle failed", "cycle", n, "err", err)
	}

	if p.cfg.MaxCycles > 0 && n >= int64(p.cfg.MaxCycles) {
		p.logger.Info("max cycles reached", "cycles", n)
		return false
	}
	return true
}
