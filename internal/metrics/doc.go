// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - scalper_cycles_total and scalper_cycle_duration_seconds
//   - scalper_decisions_total{instrument,outcome}
//   - scalper_orders_total{side,kind,result}
//   - scalper_fills_total{instrument,side}
//   - scalper_instrument_errors_total{instrument,stage}
//   - scalper_portfolio_value
//
// All methods are safe on a nil *Metrics, which records nothing.
package metrics
