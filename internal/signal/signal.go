// Package signal derives trend classifications from price history.
//
// Two modes are available: a moving-average uptrend check (ModeSMA) and a
// gap-bucket classification over short rolling windows (ModeGap). History is
// always passed most-recent-first.
package signal

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rickgao/crypto-scalper/internal/model"
)

// Mode names.
const (
	ModeSMA = "sma"
	ModeGap = "gap"
)

// Mode computes a trade signal from one instrument's price history.
type Mode interface {
	// Name returns the mode identifier.
	Name() string

	// MinPoints is the history length needed for every average to be defined.
	MinPoints() int

	// Compute classifies history, ordered most-recent-first.
	Compute(inst model.Instrument, history []model.PricePoint) model.TradeSignal
}

// New returns the mode with the given name.
func New(name string) (Mode, error) {
	switch name {
	case ModeSMA:
		return SMA{}, nil
	case ModeGap:
		return Gap{}, nil
	default:
		return nil, fmt.Errorf("unknown signal mode %q", name)
	}
}

// Average returns the mean of the most recent window points. The result is
// undefined when fewer than window points exist or any of them has no price.
func Average(history []model.PricePoint, window int) decimal.NullDecimal {
	if window <= 0 || len(history) < window {
		return decimal.NullDecimal{}
	}

	sum := decimal.Zero
	for _, p := range history[:window] {
		v := p.Value()
		if !v.IsPositive() {
			return decimal.NullDecimal{}
		}
		sum = sum.Add(v)
	}
	return decimal.NewNullDecimal(sum.Div(decimal.NewFromInt(int64(window))))
}

func allValid(values ...decimal.NullDecimal) bool {
	for _, v := range values {
		if !v.Valid {
			return false
		}
	}
	return true
}
