package lifecycle

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rickgao/crypto-scalper/internal/instrument"
	"github.com/rickgao/crypto-scalper/internal/model"
)

var one = decimal.NewFromInt(1)

// Brackets is the take-profit and stop-loss pair for one entry.
type Brackets struct {
	TakeProfit model.OrderIntent
	StopLoss   model.OrderIntent
}

// Intents returns the brackets in submission order.
func (b Brackets) Intents() []model.OrderIntent {
	return []model.OrderIntent{b.TakeProfit, b.StopLoss}
}

// BuildBrackets prices two sell orders for qty around the entry price:
// a limit at price*(1+profit) and a stop-limit at price*(1-loss) whose stop
// and limit prices coincide. Prices are rounded to the pair's quote increment
// when pair is non-nil.
func BuildBrackets(inst model.Instrument, price, qty decimal.Decimal, th model.Thresholds, pair *instrument.Pair) Brackets {
	target := price.Mul(one.Add(th.Profit))
	stop := price.Mul(one.Sub(th.Loss))
	if pair != nil {
		target = pair.QuantizePrice(target)
		stop = pair.QuantizePrice(stop)
	}

	return Brackets{
		TakeProfit: model.OrderIntent{
			ClientOrderID: uuid.NewString(),
			Instrument:    inst,
			Side:          model.SideSell,
			Price:         target,
			Quantity:      qty,
		},
		StopLoss: model.OrderIntent{
			ClientOrderID: uuid.NewString(),
			Instrument:    inst,
			Side:          model.SideSell,
			Price:         stop,
			Quantity:      qty,
			StopPrice:     decimal.NewNullDecimal(stop),
		},
	}
}
