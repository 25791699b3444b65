// Command ordersync reconciles executed orders for every configured
// instrument once and exits. Filled entries that still lack brackets get
// them placed along the way.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rickgao/crypto-scalper/internal/api"
	"github.com/rickgao/crypto-scalper/internal/auth"
	"github.com/rickgao/crypto-scalper/internal/config"
	"github.com/rickgao/crypto-scalper/internal/instrument"
	"github.com/rickgao/crypto-scalper/internal/lifecycle"
	"github.com/rickgao/crypto-scalper/internal/model"
	"github.com/rickgao/crypto-scalper/internal/reconcile"
	"github.com/rickgao/crypto-scalper/internal/store"
	"github.com/rickgao/crypto-scalper/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/scalper.local.yaml", "path to config file")
	dryRun := flag.Bool("dry-run", false, "fetch and print orders without persisting")
	flag.Parse()

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "config", *configPath)
		os.Exit(1)
	}

	level, _ := config.ParseLevel(cfg.Log.Level)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	logger.Info("starting ordersync", version.LogAttrs()...)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	creds, err := auth.LoadCredentials(cfg.API.APIKey, cfg.API.PrivateKey)
	if err != nil {
		logger.Error("failed to load api credentials", "error", err)
		os.Exit(1)
	}

	apiClient := api.NewClient(
		cfg.API.BaseURL,
		creds,
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, cfg.API.RetryBackoff),
	)

	instruments := cfg.Engine.ParsedInstruments()

	if *dryRun {
		for _, inst := range instruments {
			orders, err := apiClient.FetchExecutedOrders(ctx, inst, nil)
			if err != nil {
				logger.Error("fetch orders failed", "instrument", inst.Symbol(), "error", err)
				continue
			}
			reconcile.SortOrders(orders)
			for _, o := range orders {
				logger.Info("order",
					"instrument", inst.Symbol(),
					"id", o.ID,
					"side", o.Side,
					"state", o.State,
					"price", o.FillPrice,
					"quantity", o.FillQuantity,
					"updated_at", o.UpdatedAt,
				)
			}
		}
		return
	}

	db, err := store.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	registry := instrument.NewRegistry(instrument.DefaultConfig(), apiClient, instruments, logger)
	if err := registry.Start(ctx); err != nil {
		logger.Error("failed to load trading pairs", "error", err)
		os.Exit(1)
	}
	defer registry.Stop(context.Background())

	manager := lifecycle.NewManager(lifecycle.Config{
		Flat: model.Thresholds{
			Profit: cfg.Engine.ProfitThreshold,
			Loss:   cfg.Engine.LossThreshold,
		},
		Placement:   cfg.Engine.BracketPlacement,
		CallTimeout: cfg.Engine.CallTimeout,
	}, apiClient, db, registry, logger)

	reconciler := reconcile.New(apiClient, db, manager, cfg.Engine.CallTimeout, logger)

	failed := 0
	for _, inst := range instruments {
		res, err := reconciler.Reconcile(ctx, inst)
		if err != nil {
			logger.Error("reconcile failed", "instrument", inst.Symbol(), "error", err)
			failed++
			continue
		}
		logger.Info("reconciled",
			"instrument", inst.Symbol(),
			"fetched", res.Fetched,
			"persisted", res.Persisted,
			"filled", res.Filled,
		)
	}

	if failed > 0 {
		os.Exit(1)
	}
}
