package api

import "github.com/shopspring/decimal"

// BestBidAskResponse from GET marketdata/best_bid_ask/
type BestBidAskResponse struct {
	Results []APIQuote `json:"results"`
}

// APIQuote is one instrument's best bid/ask.
type APIQuote struct {
	Symbol                   string          `json:"symbol"`
	Price                    decimal.Decimal `json:"price"`
	BidInclusiveOfSellSpread decimal.Decimal `json:"bid_inclusive_of_sell_spread"`
	SellSpread               decimal.Decimal `json:"sell_spread"`
	AskInclusiveOfBuySpread  decimal.Decimal `json:"ask_inclusive_of_buy_spread"`
	BuySpread                decimal.Decimal `json:"buy_spread"`
	Timestamp                string          `json:"timestamp"` // ISO 8601
}

// AccountResponse from GET trading/accounts/
type AccountResponse struct {
	AccountNumber       string          `json:"account_number"`
	Status              string          `json:"status"`
	BuyingPower         decimal.Decimal `json:"buying_power"`
	BuyingPowerCurrency string          `json:"buying_power_currency"`
}

// HoldingsResponse from GET trading/holdings/
type HoldingsResponse struct {
	Next    string       `json:"next"`
	Results []APIHolding `json:"results"`
}

// APIHolding is one asset position.
type APIHolding struct {
	AccountNumber               string          `json:"account_number"`
	AssetCode                   string          `json:"asset_code"`
	TotalQuantity               decimal.Decimal `json:"total_quantity"`
	QuantityAvailableForTrading decimal.Decimal `json:"quantity_available_for_trading"`
}

// TradingPairsResponse from GET trading/trading_pairs/
type TradingPairsResponse struct {
	Next    string           `json:"next"`
	Results []APITradingPair `json:"results"`
}

// APITradingPair describes order constraints for one instrument.
type APITradingPair struct {
	Symbol         string          `json:"symbol"`
	AssetCode      string          `json:"asset_code"`
	QuoteCode      string          `json:"quote_code"`
	QuoteIncrement decimal.Decimal `json:"quote_increment"`
	AssetIncrement decimal.Decimal `json:"asset_increment"`
	MinOrderSize   decimal.Decimal `json:"min_order_size"`
	MaxOrderSize   decimal.Decimal `json:"max_order_size"`
	Status         string          `json:"status"` // "tradable" or "untradable"
}

// OrdersResponse from GET trading/orders/
type OrdersResponse struct {
	Next    string     `json:"next"`
	Results []APIOrder `json:"results"`
}

// APIOrder is an order as reported by the venue.
type APIOrder struct {
	ID                  string              `json:"id"`
	AccountNumber       string              `json:"account_number"`
	Symbol              string              `json:"symbol"`
	ClientOrderID       string              `json:"client_order_id"`
	Side                string              `json:"side"`
	Type                string              `json:"type"`
	State               string              `json:"state"` // open, partially_filled, filled, canceled, failed
	AveragePrice        decimal.NullDecimal `json:"average_price"`
	FilledAssetQuantity decimal.Decimal     `json:"filled_asset_quantity"`
	CreatedAt           string              `json:"created_at"`
	UpdatedAt           string              `json:"updated_at"`
}

// OrderRequest is the body of POST trading/orders/
type OrderRequest struct {
	ClientOrderID        string                `json:"client_order_id"`
	Side                 string                `json:"side"`
	Type                 string                `json:"type"`
	Symbol               string                `json:"symbol"`
	LimitOrderConfig     *LimitOrderConfig     `json:"limit_order_config,omitempty"`
	StopLimitOrderConfig *StopLimitOrderConfig `json:"stop_limit_order_config,omitempty"`
}

// LimitOrderConfig configures a limit order.
type LimitOrderConfig struct {
	AssetQuantity decimal.Decimal `json:"asset_quantity"`
	LimitPrice    decimal.Decimal `json:"limit_price"`
	TimeInForce   string          `json:"time_in_force"`
}

// StopLimitOrderConfig configures a stop-limit order.
type StopLimitOrderConfig struct {
	AssetQuantity decimal.Decimal `json:"asset_quantity"`
	LimitPrice    decimal.Decimal `json:"limit_price"`
	StopPrice     decimal.Decimal `json:"stop_price"`
	TimeInForce   string          `json:"time_in_force"`
}

// GetOrdersOptions configures a GetOrders request.
type GetOrdersOptions struct {
	Symbol         string
	State          string
	UpdatedAtStart string // ISO 8601, inclusive
}
