package api

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/rickgao/crypto-scalper/internal/model"
)

const bestBidAskPath = "/api/v1/crypto/marketdata/best_bid_ask/"

// GetBestBidAsk fetches best bid/ask for the given symbols.
func (c *Client) GetBestBidAsk(ctx context.Context, symbols ...string) (*BestBidAskResponse, error) {
	query := url.Values{}
	for _, s := range symbols {
		query.Add("symbol", s)
	}

	var resp BestBidAskResponse
	if err := c.get(ctx, bestBidAskPath, query, &resp); err != nil {
		return nil, fmt.Errorf("get best bid ask: %w", err)
	}
	return &resp, nil
}

// FetchQuotes returns quotes for the given instruments. Symbols the venue has
// no data for are simply absent from the result.
func (c *Client) FetchQuotes(ctx context.Context, instruments []model.Instrument) ([]model.Quote, error) {
	symbols := make([]string, len(instruments))
	for i, inst := range instruments {
		symbols[i] = inst.Symbol()
	}

	resp, err := c.GetBestBidAsk(ctx, symbols...)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	quotes := make([]model.Quote, 0, len(resp.Results))
	for i := range resp.Results {
		q, err := resp.Results[i].ToModel(now)
		if err != nil {
			c.logger.Warn("skipping quote with bad symbol", "symbol", resp.Results[i].Symbol, "error", err)
			continue
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}
