package checkout

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts checkout outcomes.
type Metrics struct {
	Attempts prometheus.Counter
	Orders   prometheus.Counter
	Failures *prometheus.CounterVec
}

// NewMetrics registers the checkout counters with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	attempts := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "checkout",
		Name:      "attempts_total",
		Help:      "Total number of checkout attempts.",
	})
	orders := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "checkout",
		Name:      "orders_total",
		Help:      "Total number of successfully placed orders.",
	})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "checkout",
		Name:      "failures_total",
		Help:      "Total number of failed checkouts by reason.",
	}, []string{"reason"})

	reg.MustRegister(attempts, orders, failures)
	return &Metrics{Attempts: attempts, Orders: orders, Failures: failures}
}
