package instrument

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rickgao/crypto-scalper/internal/api"
	"github.com/rickgao/crypto-scalper/internal/model"
)

// StatusTradable is the venue status of a pair that accepts orders.
const StatusTradable = "tradable"

// Pair holds the order constraints for one instrument.
type Pair struct {
	Instrument     model.Instrument
	AssetIncrement decimal.Decimal // quantity step
	QuoteIncrement decimal.Decimal // price step
	MinOrderSize   decimal.Decimal
	MaxOrderSize   decimal.Decimal // zero means unbounded
	Status         string
}

// Tradable reports whether the venue accepts orders for the pair.
func (p Pair) Tradable() bool {
	return p.Status == StatusTradable
}

// QuantizeQuantity truncates q down to a multiple of the asset increment.
func (p Pair) QuantizeQuantity(q decimal.Decimal) decimal.Decimal {
	if !p.AssetIncrement.IsPositive() {
		return q
	}
	return q.Div(p.AssetIncrement).Floor().Mul(p.AssetIncrement)
}

// QuantizePrice rounds price to the nearest multiple of the quote increment.
func (p Pair) QuantizePrice(price decimal.Decimal) decimal.Decimal {
	if !p.QuoteIncrement.IsPositive() {
		return price
	}
	return price.Div(p.QuoteIncrement).Round(0).Mul(p.QuoteIncrement)
}

// Admissible reports whether q is within the pair's order size limits.
func (p Pair) Admissible(q decimal.Decimal) bool {
	if !q.IsPositive() {
		return false
	}
	if q.LessThan(p.MinOrderSize) {
		return false
	}
	if p.MaxOrderSize.IsPositive() && q.GreaterThan(p.MaxOrderSize) {
		return false
	}
	return true
}

// pairFromAPI converts a venue trading pair.
func pairFromAPI(ap api.APITradingPair) (Pair, error) {
	inst, err := model.ParseInstrument(ap.Symbol)
	if err != nil {
		return Pair{}, err
	}
	return Pair{
		Instrument:     inst,
		AssetIncrement: ap.AssetIncrement,
		QuoteIncrement: ap.QuoteIncrement,
		MinOrderSize:   ap.MinOrderSize,
		MaxOrderSize:   ap.MaxOrderSize,
		Status:         strings.ToLower(ap.Status),
	}, nil
}
