package api

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/crypto-scalper/internal/model"
)

// TimeInForce is used for every submitted order.
const TimeInForce = "gtc"

// ParseTimestamp parses an ISO 8601 timestamp to UTC.
// Returns the zero time for empty or invalid input.
func ParseTimestamp(iso string) time.Time {
	if iso == "" {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339Nano, iso)
	if err != nil {
		// Try without timezone
		t, err = time.Parse("2006-01-02T15:04:05", iso)
		if err != nil {
			return time.Time{}
		}
	}

	return t.UTC()
}

// FormatTimestamp renders t the way the venue expects in query filters.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ToModel converts an APIQuote to model.Quote. A missing timestamp is
// replaced with now.
func (q *APIQuote) ToModel(now time.Time) (model.Quote, error) {
	inst, err := model.ParseInstrument(q.Symbol)
	if err != nil {
		return model.Quote{}, err
	}

	ts := ParseTimestamp(q.Timestamp)
	if ts.IsZero() {
		ts = now.UTC()
	}

	return model.Quote{
		Instrument: inst,
		Timestamp:  ts,
		Price:      q.Price,
		Bid:        q.BidInclusiveOfSellSpread,
		Ask:        q.AskInclusiveOfBuySpread,
	}, nil
}

// ToModel converts an APIHolding to model.Holding.
func (h *APIHolding) ToModel() model.Holding {
	return model.Holding{
		AssetCode: strings.ToUpper(h.AssetCode),
		Quantity:  h.TotalQuantity,
	}
}

// ToModel converts an AccountResponse to model.Account.
func (a *AccountResponse) ToModel() model.Account {
	return model.Account{
		AccountNumber: a.AccountNumber,
		BuyingPower:   a.BuyingPower,
		Currency:      a.BuyingPowerCurrency,
	}
}

// ToModel converts an APIOrder to model.ExecutedOrder.
func (o *APIOrder) ToModel() (model.ExecutedOrder, error) {
	inst, err := model.ParseInstrument(o.Symbol)
	if err != nil {
		return model.ExecutedOrder{}, err
	}

	price := decimal.Zero
	if o.AveragePrice.Valid {
		price = o.AveragePrice.Decimal
	}

	return model.ExecutedOrder{
		ID:            o.ID,
		ClientOrderID: o.ClientOrderID,
		Instrument:    inst,
		Side:          model.Side(strings.ToLower(o.Side)),
		Type:          o.Type,
		State:         o.State,
		FillPrice:     price,
		FillQuantity:  o.FilledAssetQuantity,
		CreatedAt:     ParseTimestamp(o.CreatedAt),
		UpdatedAt:     ParseTimestamp(o.UpdatedAt),
	}, nil
}

// ToAck converts an APIOrder returned from submission to model.OrderAck.
func (o *APIOrder) ToAck() model.OrderAck {
	return model.OrderAck{
		ID:            o.ID,
		ClientOrderID: o.ClientOrderID,
		State:         o.State,
		CreatedAt:     ParseTimestamp(o.CreatedAt),
	}
}

// NewOrderRequest builds the submission body for an intent.
func NewOrderRequest(intent model.OrderIntent) OrderRequest {
	req := OrderRequest{
		ClientOrderID: intent.ClientOrderID,
		Side:          string(intent.Side),
		Type:          string(intent.Kind()),
		Symbol:        intent.Instrument.Symbol(),
	}

	if intent.StopPrice.Valid {
		req.StopLimitOrderConfig = &StopLimitOrderConfig{
			AssetQuantity: intent.Quantity,
			LimitPrice:    intent.Price,
			StopPrice:     intent.StopPrice.Decimal,
			TimeInForce:   TimeInForce,
		}
	} else {
		req.LimitOrderConfig = &LimitOrderConfig{
			AssetQuantity: intent.Quantity,
			LimitPrice:    intent.Price,
			TimeInForce:   TimeInForce,
		}
	}
	return req
}
