package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/crypto-scalper/internal/model"
)

// Order submission results.
const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Metrics holds the scalper's collectors.
type Metrics struct {
	cycles        prometheus.Counter
	cycleDuration prometheus.Histogram
	decisions     *prometheus.CounterVec
	orders        *prometheus.CounterVec
	fills         *prometheus.CounterVec
	errors        *prometheus.CounterVec
	portfolio     prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scalper_cycles_total",
			Help: "Polling cycles run",
		}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scalper_cycle_duration_seconds",
			Help:    "Wall time of one polling cycle",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scalper_decisions_total",
			Help: "Strategy decisions by outcome",
		}, []string{"instrument", "outcome"}),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scalper_orders_total",
			Help: "Order submissions by side, kind and result",
		}, []string{"side", "kind", "result"}),
		fills: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scalper_fills_total",
			Help: "Newly reconciled filled orders",
		}, []string{"instrument", "side"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scalper_instrument_errors_total",
			Help: "Per-instrument failures by cycle stage",
		}, []string{"instrument", "stage"}),
		portfolio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scalper_portfolio_value",
			Help: "Cash plus holdings valued at ask, in quote currency",
		}),
	}

	reg.MustRegister(m.cycles, m.cycleDuration, m.decisions, m.orders, m.fills, m.errors, m.portfolio)
	return m
}

// Handler serves the collectors registered with g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// ObserveCycle records a finished cycle.
func (m *Metrics) ObserveCycle(d time.Duration) {
	if m == nil {
		return
	}
	m.cycles.Inc()
	m.cycleDuration.Observe(d.Seconds())
}

// ObserveDecision records a strategy outcome.
func (m *Metrics) ObserveDecision(inst model.Instrument, outcome string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(inst.Symbol(), outcome).Inc()
}

// ObserveOrder records an order submission.
func (m *Metrics) ObserveOrder(side model.Side, kind model.OrderKind, err error) {
	if m == nil {
		return
	}
	m.orders.WithLabelValues(string(side), string(kind), orderResult(err)).Inc()
}

// ObserveFill records a newly seen fill.
func (m *Metrics) ObserveFill(inst model.Instrument, side model.Side) {
	if m == nil {
		return
	}
	m.fills.WithLabelValues(inst.Symbol(), string(side)).Inc()
}

// ObserveError records a per-instrument failure.
func (m *Metrics) ObserveError(inst model.Instrument, stage string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(inst.Symbol(), stage).Inc()
}

// SetPortfolioValue updates the portfolio gauge.
func (m *Metrics) SetPortfolioValue(v float64) {
	if m == nil {
		return
	}
	m.portfolio.Set(v)
}

func orderResult(err error) string {
	switch {
	case err == nil:
		return ResultAccepted
	case errors.Is(err, model.ErrOrderRejected):
		return ResultRejected
	default:
		return ResultError
	}
}
