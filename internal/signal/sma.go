package signal

import (
	"github.com/shopspring/decimal"

	"github.com/rickgao/crypto-scalper/internal/model"
)

// Moving-average windows, in history points.
const (
	ShortWindow  = 6
	MediumWindow = 30
	LongWindow   = 48
)

// Minimum separations required between the averages for an uptrend.
var (
	MediumMargin = decimal.RequireFromString("1.004")
	LongMargin   = decimal.RequireFromString("1.003")
)

// SMA declares an uptrend when
// short > medium*1.004 and medium*1.004 > long*1.003.
type SMA struct{}

func (SMA) Name() string { return ModeSMA }

func (SMA) MinPoints() int { return LongWindow }

func (SMA) Compute(inst model.Instrument, history []model.PricePoint) model.TradeSignal {
	sig := model.TradeSignal{
		Instrument: inst,
		Mode:       ModeSMA,
		Short:      Average(history, ShortWindow),
		Medium:     Average(history, MediumWindow),
		Long:       Average(history, LongWindow),
	}

	if !allValid(sig.Short, sig.Medium, sig.Long) {
		sig.Classification = model.ClassInsufficientData
		return sig
	}

	medium := sig.Medium.Decimal.Mul(MediumMargin)
	long := sig.Long.Decimal.Mul(LongMargin)
	if sig.Short.Decimal.GreaterThan(medium) && medium.GreaterThan(long) {
		sig.Classification = model.ClassUptrend
	} else {
		sig.Classification = model.ClassNone
	}
	return sig
}
