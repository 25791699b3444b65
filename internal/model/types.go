package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------
// Market Data
// -----------------------------------------------------------------------------

// Quote is the best bid/ask for one instrument at a point in time.
// Ask values purchases and holdings; bid values exits.
type Quote struct {
	Instrument Instrument
	Timestamp  time.Time
	Price      decimal.Decimal // mid/last reference price, may be zero
	Bid        decimal.Decimal // bid inclusive of sell spread
	Ask        decimal.Decimal // ask inclusive of buy spread
}

// Validate returns ErrInvalidQuote when either side is zero or negative.
func (q Quote) Validate() error {
	if !q.Bid.IsPositive() {
		return fmt.Errorf("%w: %s bid %s", ErrInvalidQuote, q.Instrument, q.Bid)
	}
	if !q.Ask.IsPositive() {
		return fmt.Errorf("%w: %s ask %s", ErrInvalidQuote, q.Instrument, q.Ask)
	}
	return nil
}

// PricePoint is one stored price history observation.
type PricePoint struct {
	Instrument Instrument
	Timestamp  time.Time
	Price      decimal.Decimal
	Bid        decimal.Decimal
	Ask        decimal.Decimal
}

// Value returns the price signals are computed on: the bid, falling back to
// the reference price for rows recorded without one.
func (p PricePoint) Value() decimal.Decimal {
	if p.Bid.IsPositive() {
		return p.Bid
	}
	return p.Price
}

// PointFromQuote converts a quote into a history row.
func PointFromQuote(q Quote) PricePoint {
	return PricePoint{
		Instrument: q.Instrument,
		Timestamp:  q.Timestamp,
		Price:      q.Price,
		Bid:        q.Bid,
		Ask:        q.Ask,
	}
}

// -----------------------------------------------------------------------------
// Account State
// -----------------------------------------------------------------------------

// Holding is a venue-owned position in one asset.
type Holding struct {
	AssetCode         string              // e.g. "BTC"
	Quantity          decimal.Decimal     // total quantity held
	LastPurchasePrice decimal.NullDecimal // optional
}

// Instrument returns the holding's pair against the default quote asset.
func (h Holding) Instrument() Instrument {
	return Instrument{Base: h.AssetCode, Quote: DefaultQuoteAsset}
}

// Account is the venue cash account.
type Account struct {
	AccountNumber string
	BuyingPower   decimal.Decimal
	Currency      string
}

// -----------------------------------------------------------------------------
// Orders
// -----------------------------------------------------------------------------

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderKind is the venue order type.
type OrderKind string

const (
	KindLimit     OrderKind = "limit"
	KindStopLimit OrderKind = "stop_limit"
)

// OrderStateFilled is the only executed-order state the engine reacts to.
const OrderStateFilled = "filled"

// OrderIntent is an order constructed by the engine and handed to the venue.
type OrderIntent struct {
	ClientOrderID string
	Instrument    Instrument
	Side          Side
	Price         decimal.Decimal
	Quantity      decimal.Decimal
	StopPrice     decimal.NullDecimal // set only for stop-loss exits
}

// Kind returns KindStopLimit when a stop price is attached.
func (o OrderIntent) Kind() OrderKind {
	if o.StopPrice.Valid {
		return KindStopLimit
	}
	return KindLimit
}

// OrderAck is the venue acknowledgement of a submitted order.
type OrderAck struct {
	ID            string
	ClientOrderID string
	State         string
	CreatedAt     time.Time
}

// ExecutedOrder is an order as reported back by the venue's order history.
type ExecutedOrder struct {
	ID            string
	ClientOrderID string
	Instrument    Instrument
	Side          Side
	Type          string
	State         string
	FillPrice     decimal.Decimal // average fill price
	FillQuantity  decimal.Decimal // filled asset quantity
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsFilled reports whether the venue considers the order filled.
func (o ExecutedOrder) IsFilled() bool {
	return o.State == OrderStateFilled
}

// -----------------------------------------------------------------------------
// Signals & Brackets
// -----------------------------------------------------------------------------

// Classification is the outcome of a signal computation.
type Classification string

const (
	ClassInsufficientData Classification = "insufficient_data"
	ClassNone             Classification = "none"
	ClassUptrend          Classification = "uptrend"
	ClassMedium           Classification = "medium"
	ClassLarge            Classification = "large"
	ClassExtreme          Classification = "extreme"
)

// Actionable reports whether the classification is a buy signal.
func (c Classification) Actionable() bool {
	switch c {
	case ClassUptrend, ClassMedium, ClassLarge, ClassExtreme:
		return true
	}
	return false
}

// IsBucket reports whether the classification is a gap bucket.
func (c Classification) IsBucket() bool {
	return c == ClassMedium || c == ClassLarge || c == ClassExtreme
}

// TradeSignal is recomputed every cycle and never persisted.
type TradeSignal struct {
	Instrument     Instrument
	Mode           string
	Short          decimal.NullDecimal
	Medium         decimal.NullDecimal
	Long           decimal.NullDecimal
	Gap            decimal.NullDecimal // top-level gap, gap mode only
	Classification Classification
}

// Thresholds are the fractional distances of the two bracket exits from the entry price.
type Thresholds struct {
	Profit decimal.Decimal
	Loss   decimal.Decimal
}

// Entry records a submitted entry order so its brackets are placed at most once.
type Entry struct {
	OrderID          string
	ClientOrderID    string
	Instrument       Instrument
	Classification   Classification
	Thresholds       Thresholds
	Price            decimal.Decimal
	Quantity         decimal.Decimal
	CreatedAt        time.Time
	BracketsPlacedAt *time.Time
}

// BracketsPlaced reports whether exit orders were already submitted for this entry.
func (e Entry) BracketsPlaced() bool {
	return e.BracketsPlacedAt != nil
}

// -----------------------------------------------------------------------------
// Cycle Context
// -----------------------------------------------------------------------------

// CycleContext is the venue state read once at the start of a cycle and
// shared read-only by every instrument processed in that cycle.
type CycleContext struct {
	Number    uint64
	StartedAt time.Time

	Quotes         map[string]Quote // by instrument symbol
	Holdings       []Holding
	HoldingsLoaded bool
	Cash           decimal.NullDecimal
}

// QuoteFor returns the quote for an instrument if one was fetched.
func (c *CycleContext) QuoteFor(inst Instrument) (Quote, bool) {
	if c == nil || c.Quotes == nil {
		return Quote{}, false
	}
	q, ok := c.Quotes[inst.Symbol()]
	return q, ok
}
