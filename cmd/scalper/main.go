package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/rickgao/crypto-scalper/internal/api"
	"github.com/rickgao/crypto-scalper/internal/auth"
	"github.com/rickgao/crypto-scalper/internal/config"
	"github.com/rickgao/crypto-scalper/internal/engine"
	"github.com/rickgao/crypto-scalper/internal/instrument"
	"github.com/rickgao/crypto-scalper/internal/lifecycle"
	"github.com/rickgao/crypto-scalper/internal/metrics"
	"github.com/rickgao/crypto-scalper/internal/model"
	"github.com/rickgao/crypto-scalper/internal/poller"
	"github.com/rickgao/crypto-scalper/internal/portfolio"
	"github.com/rickgao/crypto-scalper/internal/reconcile"
	sig "github.com/rickgao/crypto-scalper/internal/signal"
	"github.com/rickgao/crypto-scalper/internal/store"
	"github.com/rickgao/crypto-scalper/internal/strategy"
	"github.com/rickgao/crypto-scalper/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/scalper.local.yaml", "path to config file")
	flag.Parse()

	// Load configuration before logging so log.level applies from the start
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "config", *configPath)
		os.Exit(1)
	}

	level, _ := config.ParseLevel(cfg.Log.Level)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting scalper", append(version.LogAttrs(), "config", *configPath)...)

	instruments := cfg.Engine.ParsedInstruments()
	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"api_url", cfg.API.BaseURL,
		"instruments", len(instruments),
		"signal_mode", cfg.Engine.SignalMode,
		"bracket_placement", cfg.Engine.BracketPlacement,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigCh
		logger.Info("received shutdown signal", "signal", s)
		cancel()
	}()

	creds, err := auth.LoadCredentials(cfg.API.APIKey, cfg.API.PrivateKey)
	if err != nil {
		logger.Error("failed to load api credentials", "error", err)
		os.Exit(1)
	}

	// Open storage
	db, err := store.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Create API client
	apiClient := api.NewClient(
		cfg.API.BaseURL,
		creds,
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, cfg.API.RetryBackoff),
	)

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Trading-pair registry
	registry := instrument.NewRegistry(
		instrument.Config{ReconcileInterval: cfg.Registry.ReconcileInterval},
		apiClient,
		instruments,
		logger,
	)

	mode, err := sig.New(cfg.Engine.SignalMode)
	if err != nil {
		logger.Error("invalid signal mode", "error", err)
		os.Exit(1)
	}

	sizer := portfolio.NewSizer(cfg.Engine.AllocationFraction)
	logger.Info("trading policy",
		"signal_mode", mode.Name(),
		"min_points", mode.MinPoints(),
		"allocation_fraction", sizer.Fraction(),
	)

	strat := strategy.New(
		mode,
		sizer,
		portfolio.NewGuard(logger),
		registry,
		logger,
	)

	manager := lifecycle.NewManager(lifecycle.Config{
		Flat: model.Thresholds{
			Profit: cfg.Engine.ProfitThreshold,
			Loss:   cfg.Engine.LossThreshold,
		},
		Placement:   cfg.Engine.BracketPlacement,
		CallTimeout: cfg.Engine.CallTimeout,
	}, apiClient, db, registry, logger)
	manager.SetRecorder(m)

	reconciler := reconcile.New(apiClient, db, manager, cfg.Engine.CallTimeout, logger)
	reconciler.SetRecorder(m)

	eng := engine.New(engine.Config{
		Instruments:  instruments,
		HistoryLimit: cfg.Engine.HistoryLimit,
		CallTimeout:  cfg.Engine.CallTimeout,
		Concurrency:  cfg.Engine.Concurrency,
	}, apiClient, db, strat, manager, reconciler, m, logger)

	// Start health server early so we can monitor registry sync
	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: createHandler(db, registry, eng, reg, cfg.Metrics.Path, cfg.Poller.Interval),
	}

	go func() {
		logger.Info("starting health server", "port", cfg.Metrics.Port, "metrics_path", cfg.Metrics.Path)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	// Start registry (initial sync of order constraints)
	if err := registry.Start(ctx); err != nil {
		logger.Error("failed to start instrument registry", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		registry.Stop(shutdownCtx)
	}()

	// Start cycle poller
	p := poller.New(poller.Config{
		Interval:  cfg.Poller.Interval,
		MaxCycles: cfg.Poller.MaxCycles,
	}, poller.CycleRunnerFunc(func(ctx context.Context) error {
		_, err := eng.RunCycle(ctx)
		return err
	}), logger)

	if err := p.Start(ctx); err != nil {
		logger.Error("failed to start poller", "error", err)
		os.Exit(1)
	}

	logger.Info("scalper running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port),
	)

	// Wait for shutdown or a bounded run to finish
	select {
	case <-ctx.Done():
	case <-p.Done():
		logger.Info("poller finished", "cycles", p.Cycles(), "failed", p.Failed())
	}

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := p.Stop(shutdownCtx); err != nil {
		logger.Warn("poller did not stop cleanly", "error", err)
	}
	healthServer.Shutdown(shutdownCtx)

	logger.Info("scalper stopped")
}

// pinger is satisfied by every store backend.
type pinger interface {
	Ping(ctx context.Context) error
}

// cycleReporter exposes the last finished cycle.
type cycleReporter interface {
	LastCycle() (engine.CycleSummary, bool)
}

// pairLister exposes the synced trading pairs.
type pairLister interface {
	Pairs() []instrument.Pair
	LastSync() time.Time
}

// createHandler creates the HTTP handler for health checks and metrics.
// The instance is degraded when no cycle finished within three intervals.
func createHandler(db pinger, pairs pairLister, cycles cycleReporter, g prometheus.Gatherer, metricsPath string, interval time.Duration) http.Handler {
	mux := http.NewServeMux()

	mux.Handle(metricsPath, metrics.Handler(g))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Version    string         `json:"version"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Version:    version.String(),
			Components: make(map[string]any),
		}

		// Check database
		if err := db.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["database"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["database"] = "connected"
		}

		// Check registry
		health.Components["instrument_registry"] = map[string]any{
			"pairs":     len(pairs.Pairs()),
			"last_sync": pairs.LastSync(),
		}

		// Check cycles
		last, ok := cycles.LastCycle()
		switch {
		case !ok:
			health.Components["engine"] = "no cycle yet"
		default:
			health.Components["engine"] = map[string]any{
				"cycle":    last.Number,
				"started":  last.StartedAt,
				"duration": last.Duration.String(),
				"entered":  last.Entered,
				"errors":   last.Errors,
				"traded":   last.Traded,
			}
			if time.Since(last.StartedAt) > 3*interval+last.Duration && health.Status == "healthy" {
				health.Status = "degraded"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	return mux
}
