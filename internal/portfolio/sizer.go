package portfolio

import (
	"github.com/shopspring/decimal"

	"github.com/rickgao/crypto-scalper/internal/model"
)

// Reasons a sizing came out as zero.
const (
	ReasonNoCash       = "no_account_data"
	ReasonNoQuote      = "no_quote"
	ReasonInvalidAsk   = "invalid_ask"
	ReasonNoAllocation = "zero_allocation"
)

// Sizing is the outcome of a sizing calculation.
type Sizing struct {
	PortfolioValue decimal.Decimal
	Allocation     decimal.Decimal
	Ask            decimal.Decimal
	Quantity       decimal.Decimal // never negative
	Reason         string          // set when Quantity is zero
}

// Sizer allocates a fixed fraction of portfolio value to one new position.
type Sizer struct {
	fraction decimal.Decimal
}

// NewSizer creates a sizer for the given allocation fraction.
func NewSizer(fraction decimal.Decimal) Sizer {
	return Sizer{fraction: fraction}
}

// Fraction returns the allocation fraction.
func (s Sizer) Fraction() decimal.Decimal {
	return s.fraction
}

// HoldingsValue sums quantity x ask over holdings with a positive quantity.
// Holdings without a usable quote are skipped.
func HoldingsValue(cc *model.CycleContext) decimal.Decimal {
	total := decimal.Zero
	if cc == nil {
		return total
	}
	for _, h := range cc.Holdings {
		if !h.Quantity.IsPositive() {
			continue
		}
		q, ok := cc.QuoteFor(h.Instrument())
		if !ok || !q.Ask.IsPositive() {
			continue
		}
		total = total.Add(h.Quantity.Mul(q.Ask))
	}
	return total
}

// PortfolioValue returns cash plus holdings valued at the current ask. ok is
// false when the cash balance is unknown.
func PortfolioValue(cc *model.CycleContext) (value decimal.Decimal, ok bool) {
	if cc == nil || !cc.Cash.Valid {
		return decimal.Zero, false
	}
	return cc.Cash.Decimal.Add(HoldingsValue(cc)), true
}

// Size computes the target buy quantity for inst.
func (s Sizer) Size(cc *model.CycleContext, inst model.Instrument) Sizing {
	var out Sizing

	value, ok := PortfolioValue(cc)
	if !ok {
		out.Reason = ReasonNoCash
		return out
	}
	out.PortfolioValue = value
	out.Allocation = s.fraction.Mul(value)

	q, ok := cc.QuoteFor(inst)
	if !ok {
		out.Reason = ReasonNoQuote
		return out
	}
	out.Ask = q.Ask
	if !q.Ask.IsPositive() {
		out.Reason = ReasonInvalidAsk
		return out
	}
	if !out.Allocation.IsPositive() {
		out.Reason = ReasonNoAllocation
		return out
	}

	out.Quantity = out.Allocation.Div(q.Ask)
	return out
}

// TargetQuantity is Size reduced to its quantity.
func (s Sizer) TargetQuantity(cc *model.CycleContext, inst model.Instrument) decimal.Decimal {
	return s.Size(cc, inst).Quantity
}
