// Package model defines shared data types used across the scalper.
//
// Conventions:
//   - Prices, quantities and cash: decimal.Decimal (never float64)
//   - Timestamps: time.Time in UTC
//   - Instruments: canonical "BASE-QUOTE" symbols (e.g. "BTC-USD")
package model
