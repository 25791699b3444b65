package signal

import (
	"github.com/shopspring/decimal"

	"github.com/rickgao/crypto-scalper/internal/model"
)

// Gap windows, in history points (one point per minute at the default cadence).
var GapWindows = [4]int{1, 3, 5, 15}

// Bucket lower bounds for the top-level gap.
var (
	MediumGap  = decimal.RequireFromString("0.0001")
	LargeGap   = decimal.RequireFromString("0.0003")
	ExtremeGap = decimal.RequireFromString("0.0005")
)

// Gap classifies avg(1) - avg(3) into medium, large or extreme buckets. The
// 5 and 15 point averages must exist too, so the mode needs 15 points.
type Gap struct{}

func (Gap) Name() string { return ModeGap }

func (Gap) MinPoints() int { return GapWindows[len(GapWindows)-1] }

func (Gap) Compute(inst model.Instrument, history []model.PricePoint) model.TradeSignal {
	var avgs [len(GapWindows)]decimal.NullDecimal
	for i, w := range GapWindows {
		avgs[i] = Average(history, w)
	}

	sig := model.TradeSignal{
		Instrument: inst,
		Mode:       ModeGap,
		Short:      avgs[0],
		Medium:     avgs[1],
		Long:       avgs[3],
	}

	if !allValid(avgs[:]...) {
		sig.Classification = model.ClassInsufficientData
		return sig
	}

	gap := avgs[0].Decimal.Sub(avgs[1].Decimal)
	sig.Gap = decimal.NewNullDecimal(gap)
	sig.Classification = Bucket(gap)
	return sig
}

// Bucket maps a gap onto its classification.
func Bucket(gap decimal.Decimal) model.Classification {
	switch {
	case gap.GreaterThanOrEqual(ExtremeGap):
		return model.ClassExtreme
	case gap.GreaterThanOrEqual(LargeGap):
		return model.ClassLarge
	case gap.GreaterThanOrEqual(MediumGap):
		return model.ClassMedium
	default:
		return model.ClassNone
	}
}
