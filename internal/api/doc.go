// Package api provides the venue REST client.
//
// Endpoints (all under /api/v1/crypto):
//   - GET  marketdata/best_bid_ask/   quotes inclusive of spread
//   - GET  trading/accounts/          buying power
//   - GET  trading/holdings/          asset holdings (paginated)
//   - GET  trading/trading_pairs/     increments and order size limits (paginated)
//   - GET  trading/orders/            order history (paginated)
//   - POST trading/orders/            order submission
//
// Every request is signed with auth.Credentials when credentials are set.
package api
