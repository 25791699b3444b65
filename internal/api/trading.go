package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rickgao/crypto-scalper/internal/model"
)

const (
	accountsPath     = "/api/v1/crypto/trading/accounts/"
	holdingsPath     = "/api/v1/crypto/trading/holdings/"
	tradingPairsPath = "/api/v1/crypto/trading/trading_pairs/"
)

// GetAccount fetches the trading account.
func (c *Client) GetAccount(ctx context.Context) (*AccountResponse, error) {
	var resp AccountResponse
	if err := c.get(ctx, accountsPath, nil, &resp); err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &resp, nil
}

// FetchAccountBalance returns the account's buying power.
func (c *Client) FetchAccountBalance(ctx context.Context) (model.Account, error) {
	resp, err := c.GetAccount(ctx)
	if err != nil {
		return model.Account{}, err
	}
	return resp.ToModel(), nil
}

// GetHoldings fetches one page of holdings.
func (c *Client) GetHoldings(ctx context.Context, query url.Values) (*HoldingsResponse, error) {
	var resp HoldingsResponse
	if err := c.get(ctx, holdingsPath, query, &resp); err != nil {
		return nil, fmt.Errorf("get holdings: %w", err)
	}
	return &resp, nil
}

// FetchHoldings fetches all holdings by paginating through results.
func (c *Client) FetchHoldings(ctx context.Context) ([]model.Holding, error) {
	var holdings []model.Holding
	query := url.Values{}

	for query != nil {
		resp, err := c.GetHoldings(ctx, query)
		if err != nil {
			return nil, err
		}
		for i := range resp.Results {
			holdings = append(holdings, resp.Results[i].ToModel())
		}

		query, err = nextQuery(resp.Next)
		if err != nil {
			return nil, err
		}
	}

	return holdings, nil
}

// GetTradingPairs fetches trading pair constraints for the given symbols,
// paginating through results. No symbols means all pairs.
func (c *Client) GetTradingPairs(ctx context.Context, symbols ...string) ([]APITradingPair, error) {
	var pairs []APITradingPair
	query := url.Values{}
	for _, s := range symbols {
		query.Add("symbol", s)
	}

	for query != nil {
		var resp TradingPairsResponse
		if err := c.get(ctx, tradingPairsPath, query, &resp); err != nil {
			return nil, fmt.Errorf("get trading pairs: %w", err)
		}
		pairs = append(pairs, resp.Results...)

		var err error
		query, err = nextQuery(resp.Next)
		if err != nil {
			return nil, err
		}
	}

	return pairs, nil
}
