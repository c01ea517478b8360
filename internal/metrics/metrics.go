package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Price calculation metrics
	PriceCalculationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_calculations_total",
			Help: "Total number of price calculations by outcome",
		},
		[]string{"outcome"},
	)

	PriceCalculationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pricing_calculation_duration_seconds",
			Help:    "Price calculation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RulesAppliedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_rules_applied_total",
			Help: "Total number of applied pricing rules by kind",
		},
		[]string{"kind"},
	)

	BelowCostTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_below_cost_total",
			Help: "Total number of below-cost final prices",
		},
		[]string{"authorized"},
	)

	// Order confirmation metrics
	OrderConfirmationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_confirmations_total",
			Help: "Total number of order confirmation attempts",
		},
		[]string{"result"},
	)

	// Supplier discount registrations
	SupplierDiscountRegistrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supplier_discount_registrations_total",
			Help: "Total number of supplier discount registrations",
		},
		[]string{"result"},
	)
)

// Outcome labels for PriceCalculationsTotal
const (
	OutcomeOK        = "ok"
	OutcomeNoList    = "no_list"
	OutcomeNoPrice   = "no_price"
	OutcomeBelowCost = "below_cost"
	OutcomeError     = "error"
)

// ObserveCalculation records one calculation's duration
func ObserveCalculation(start time.Time) {
	PriceCalculationDuration.Observe(time.Since(start).Seconds())
}
