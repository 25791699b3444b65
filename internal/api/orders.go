package api

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/crypto-scalper/internal/model"
)

const ordersPath = "/api/v1/crypto/trading/orders/"

// PlaceOrder submits an order intent. A venue refusal is reported as
// model.ErrOrderRejected. An empty ClientOrderID is filled with a fresh UUID.
//
// When an attempt fails ambiguously (transport error, 5xx, 429) the venue is
// asked whether the client order id already exists before resubmitting, so a
// lost response never produces a second order or a false rejection.
func (c *Client) PlaceOrder(ctx context.Context, intent model.OrderIntent) (model.OrderAck, error) {
	if intent.ClientOrderID == "" {
		intent.ClientOrderID = uuid.NewString()
	}
	req := NewOrderRequest(intent)
	since := time.Now().Add(-orderLookupSlack)
	backoff := c.retryBackoff

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := c.wait(ctx, attempt, &backoff, ordersPath); err != nil {
				return model.OrderAck{}, fmt.Errorf("place %s %s order %s: %w", req.Side, req.Type, req.Symbol, err)
			}
		}

		var resp APIOrder
		err := c.post(ctx, ordersPath, req, &resp)
		if err == nil {
			ack := resp.ToAck()
			if ack.ClientOrderID == "" {
				ack.ClientOrderID = intent.ClientOrderID
			}
			return ack, nil
		}
		lastErr = err

		// A refusal after an ambiguous attempt may be the venue rejecting
		// the duplicate client order id of an order it already holds.
		if !isRetryable(ctx, err) && attempt == 0 {
			break
		}

		ack, found, lookupErr := c.findOrder(ctx, req.Symbol, intent.ClientOrderID, since)
		if lookupErr != nil {
			c.logger.Error("order state unknown after failed submission",
				"client_order_id", intent.ClientOrderID,
				"symbol", req.Symbol,
				"error", err,
				"lookup_error", lookupErr,
			)
			break
		}
		if found {
			c.logger.Warn("order accepted despite failed submission",
				"client_order_id", intent.ClientOrderID,
				"order_id", ack.ID,
				"error", err,
			)
			return ack, nil
		}
		if !isRetryable(ctx, err) {
			break
		}
	}

	return model.OrderAck{}, fmt.Errorf("place %s %s order %s: %w", req.Side, req.Type, req.Symbol, lastErr)
}

// orderLookupSlack widens the lookup window for venue clock skew.
const orderLookupSlack = time.Minute

// findOrder looks up an order by client order id among the symbol's orders
// updated since the given time.
func (c *Client) findOrder(ctx context.Context, symbol, clientOrderID string, since time.Time) (model.OrderAck, bool, error) {
	orders, err := c.GetAllOrders(ctx, GetOrdersOptions{
		Symbol:         symbol,
		UpdatedAtStart: FormatTimestamp(since),
	})
	if err != nil {
		return model.OrderAck{}, false, err
	}
	for i := range orders {
		if orders[i].ClientOrderID == clientOrderID {
			return orders[i].ToAck(), true, nil
		}
	}
	return model.OrderAck{}, false, nil
}

// GetOrders fetches one page of orders.
func (c *Client) GetOrders(ctx context.Context, query url.Values) (*OrdersResponse, error) {
	var resp OrdersResponse
	if err := c.get(ctx, ordersPath, query, &resp); err != nil {
		return nil, fmt.Errorf("get orders: %w", err)
	}
	return &resp, nil
}

// GetAllOrders fetches every order matching opts by paginating through results.
func (c *Client) GetAllOrders(ctx context.Context, opts GetOrdersOptions) ([]APIOrder, error) {
	query := url.Values{}
	if opts.Symbol != "" {
		query.Set("symbol", opts.Symbol)
	}
	if opts.State != "" {
		query.Set("state", opts.State)
	}
	if opts.UpdatedAtStart != "" {
		query.Set("updated_at_start", opts.UpdatedAtStart)
	}

	var orders []APIOrder
	for query != nil {
		resp, err := c.GetOrders(ctx, query)
		if err != nil {
			return nil, err
		}
		orders = append(orders, resp.Results...)

		query, err = nextQuery(resp.Next)
		if err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// FetchExecutedOrders returns the instrument's orders updated at or after
// since. A nil since returns the full history.
func (c *Client) FetchExecutedOrders(ctx context.Context, inst model.Instrument, since *time.Time) ([]model.ExecutedOrder, error) {
	opts := GetOrdersOptions{Symbol: inst.Symbol()}
	if since != nil {
		opts.UpdatedAtStart = FormatTimestamp(*since)
	}

	raw, err := c.GetAllOrders(ctx, opts)
	if err != nil {
		return nil, err
	}

	orders := make([]model.ExecutedOrder, 0, len(raw))
	for i := range raw {
		o, err := raw[i].ToModel()
		if err != nil {
			c.logger.Warn("skipping order with bad symbol", "order_id", raw[i].ID, "symbol", raw[i].Symbol, "error", err)
			continue
		}
		orders = append(orders, o)
	}
	return orders, nil
}
