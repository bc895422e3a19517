// Package metrics provides Prometheus instrumentation for the credit
// accounting core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, route pattern, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shoplink",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, route pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and route pattern.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "shoplink",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// LedgerOperationsTotal counts applied ledger operations by action and owner type.
	LedgerOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shoplink",
			Name:      "ledger_operations_total",
			Help:      "Total ledger entries written by action and owner type.",
		},
		[]string{"action", "owner_type"},
	)

	// InsufficientCreditsTotal counts rejected deductions.
	InsufficientCreditsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "shoplink",
			Name:      "insufficient_credits_total",
			Help:      "Total operations rejected for insufficient credits.",
		},
	)

	// SlotConflictsTotal counts rejected ad slot acquisitions.
	SlotConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "shoplink",
			Name:      "slot_conflicts_total",
			Help:      "Total ad slot acquisitions rejected with a conflict.",
		},
	)

	// ReclaimerRunsTotal counts reclaimer sweeps by result.
	ReclaimerRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shoplink",
			Name:      "reclaimer_runs_total",
			Help:      "Total expiry reclaimer sweeps by result.",
		},
		[]string{"result"},
	)

	// ReclaimedCouponUnitsTotal counts coupon units refunded at batch expiry.
	ReclaimedCouponUnitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "shoplink",
			Name:      "reclaimed_coupon_units_total",
			Help:      "Total unconsumed coupon units refunded by the reclaimer.",
		},
	)

	// ExpiredAdGrantsTotal counts paid ad grants expired by the reclaimer.
	ExpiredAdGrantsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "shoplink",
			Name:      "expired_ad_grants_total",
			Help:      "Total paid ad grants marked expired by the reclaimer.",
		},
	)
)

// Register registers all collectors on the default registry. Call once at
// startup.
func Register() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		LedgerOperationsTotal,
		InsufficientCreditsTotal,
		SlotConflictsTotal,
		ReclaimerRunsTotal,
		ReclaimedCouponUnitsTotal,
		ExpiredAdGrantsTotal,
	)
}

// Handler exposes the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
