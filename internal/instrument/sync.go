package instrument

import (
	"context"
	"fmt"
	"time"
)

// initialSync fetches the configured pairs on startup.
func (r *Registry) initialSync(ctx context.Context) error {
	start := time.Now()

	apiPairs, err := r.source.GetTradingPairs(ctx, r.symbols()...)
	if err != nil {
		return fmt.Errorf("initial trading pair sync: %w", err)
	}

	r.state.mu.Lock()
	for _, ap := range apiPairs {
		p, err := pairFromAPI(ap)
		if err != nil {
			r.logger.Warn("skipping trading pair", "symbol", ap.Symbol, "error", err)
			continue
		}
		r.state.upsertLocked(p)
		if !p.Tradable() {
			r.logger.Warn("instrument not tradable", "instrument", p.Instrument.Symbol(), "status", p.Status)
		}
	}
	r.state.lastSyncAt = time.Now()
	r.state.mu.Unlock()

	for _, inst := range r.instruments {
		if _, ok := r.Lookup(inst); !ok {
			r.logger.Warn("no trading pair reported for instrument", "instrument", inst.Symbol())
		}
	}

	r.logger.Info("initial sync complete",
		"pairs", len(apiPairs),
		"duration", time.Since(start),
	)
	return nil
}

// reconciliationLoop periodically syncs with REST API.
func (r *Registry) reconciliationLoop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reconcile(ctx)
		}
	}
}

// reconcile refreshes pairs and logs constraint or status changes.
func (r *Registry) reconcile(ctx context.Context) {
	start := time.Now()

	apiPairs, err := r.source.GetTradingPairs(ctx, r.symbols()...)
	if err != nil {
		r.logger.Error("reconciliation failed fetching trading pairs", "error", err)
		return
	}

	var created, changed int

	r.state.mu.Lock()
	for _, ap := range apiPairs {
		p, err := pairFromAPI(ap)
		if err != nil {
			continue
		}

		old, existed := r.state.upsertLocked(p)
		switch {
		case !existed:
			created++
		case old.Status != p.Status:
			r.logger.Info("instrument status changed",
				"instrument", p.Instrument.Symbol(),
				"old_status", old.Status,
				"new_status", p.Status,
			)
			changed++
		case !old.AssetIncrement.Equal(p.AssetIncrement) ||
			!old.QuoteIncrement.Equal(p.QuoteIncrement) ||
			!old.MinOrderSize.Equal(p.MinOrderSize):
			changed++
		}
	}
	r.state.lastSyncAt = time.Now()
	r.state.mu.Unlock()

	if created > 0 || changed > 0 {
		r.logger.Info("reconciliation found changes",
			"created", created,
			"changed", changed,
			"duration", time.Since(start),
		)
	} else {
		r.logger.Debug("reconciliation complete",
			"pairs", len(apiPairs),
			"duration", time.Since(start),
		)
	}
}
