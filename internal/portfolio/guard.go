package portfolio

import (
	"log/slog"
	"strings"

	"github.com/rickgao/crypto-scalper/internal/model"
)

// Guard blocks new entries for instruments that are already held.
type Guard struct {
	logger *slog.Logger
}

// NewGuard creates a position guard.
func NewGuard(logger *slog.Logger) Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return Guard{logger: logger}
}

// AlreadyHolds reports whether the snapshot holds a positive quantity of the
// instrument's base asset. Missing holdings data fails open to false.
func (g Guard) AlreadyHolds(cc *model.CycleContext, inst model.Instrument) bool {
	if cc == nil || !cc.HoldingsLoaded {
		g.logger.Warn("no holdings data, assuming instrument not held", "instrument", inst.Symbol())
		return false
	}

	for _, h := range cc.Holdings {
		if strings.EqualFold(h.AssetCode, inst.Asset()) && h.Quantity.IsPositive() {
			return true
		}
	}
	return false
}
