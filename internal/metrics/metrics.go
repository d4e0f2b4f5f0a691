// Package metrics holds the Prometheus collectors of the ledger server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "milkledger"

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "code"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	Mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mutations_total",
		Help:      "Ledger commands by operation and result.",
	}, []string{"operation", "result"})

	Backups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backups_total",
		Help:      "Scheduled backup runs by result.",
	}, []string{"result"})

	LedgerDays = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ledger_days",
		Help:      "Dates with a delivery record.",
	})

	Customers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "customers",
		Help:      "Registered customers by status.",
	}, []string{"status"})
)

// Result labels.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// ObserveMutation counts a finished command.
func ObserveMutation(op string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	Mutations.WithLabelValues(op, result).Inc()
}

// SetState updates the size gauges.
func SetState(days, active, inactive int) {
	LedgerDays.Set(float64(days))
	Customers.WithLabelValues("active").Set(float64(active))
	Customers.WithLabelValues("inactive").Set(float64(inactive))
}
