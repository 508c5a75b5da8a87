// Package metrics holds the Prometheus instruments for the treasury engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts treasury activity. Amounts are tracked in base units so
// dashboards can graph flow, not just call rates.
type Metrics struct {
	Deposits        prometheus.Counter
	DepositedUnits  prometheus.Counter
	Investments     prometheus.Counter
	Divestments     prometheus.Counter
	GrantsAllocated prometheus.Counter
	GrantsDisbursed prometheus.Counter
	YieldClaims     prometheus.Counter
	YieldUnits      prometheus.Counter
	LiquidityRaises prometheus.Counter

	OpDuration *prometheus.HistogramVec
}

// New creates and registers all treasury metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on a specific registerer. Tests pass a fresh
// registry to avoid duplicate-registration panics.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Deposits: factory.NewCounter(prometheus.CounterOpts{
			Name: "verigrant_treasury_deposits_total",
			Help: "Total number of accepted deposits",
		}),
		DepositedUnits: factory.NewCounter(prometheus.CounterOpts{
			Name: "verigrant_treasury_deposited_units_total",
			Help: "Total deposited amount in base units",
		}),
		Investments: factory.NewCounter(prometheus.CounterOpts{
			Name: "verigrant_treasury_investments_total",
			Help: "Total number of opened investment positions, auto-invest included",
		}),
		Divestments: factory.NewCounter(prometheus.CounterOpts{
			Name: "verigrant_treasury_divestments_total",
			Help: "Total number of voluntary divestments",
		}),
		GrantsAllocated: factory.NewCounter(prometheus.CounterOpts{
			Name: "verigrant_treasury_grants_allocated_total",
			Help: "Total number of grant allocations",
		}),
		GrantsDisbursed: factory.NewCounter(prometheus.CounterOpts{
			Name: "verigrant_treasury_grants_disbursed_total",
			Help: "Total number of grant disbursements",
		}),
		YieldClaims: factory.NewCounter(prometheus.CounterOpts{
			Name: "verigrant_treasury_yield_claims_total",
			Help: "Total number of yield claim passes",
		}),
		YieldUnits: factory.NewCounter(prometheus.CounterOpts{
			Name: "verigrant_treasury_yield_units_total",
			Help: "Total realized yield in base units",
		}),
		LiquidityRaises: factory.NewCounter(prometheus.CounterOpts{
			Name: "verigrant_treasury_liquidity_raises_total",
			Help: "Total number of forced divestment walks to raise liquidity",
		}),
		OpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "verigrant_treasury_op_duration_seconds",
			Help:    "Latency of treasury engine operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}
}

// ObserveOp records one operation's latency.
func (m *Metrics) ObserveOp(op string, d time.Duration) {
	if m == nil {
		return
	}
	m.OpDuration.WithLabelValues(op).Observe(d.Seconds())
}
