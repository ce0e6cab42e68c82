package metrics

import "github.com/prometheus/client_golang/prometheus"

// Counters for the assignment lifecycle and the rejections the engine hands
// back to clients.
var (
	OrdersCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "waiterboard_orders_created_total",
			Help: "Total number of orders created",
		},
	)

	OrdersClaimedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "waiterboard_orders_claimed_total",
			Help: "Total number of successful claims",
		},
	)

	OrdersDeliveredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "waiterboard_orders_delivered_total",
			Help: "Total number of delivered orders",
		},
	)

	OrdersReleasedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "waiterboard_orders_released_total",
			Help: "Total number of released claims",
		},
	)

	TransitionsRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waiterboard_transitions_rejected_total",
			Help: "Transitions rejected by the assignment engine, by reason",
		},
		[]string{"reason"},
	)

	DeliveryMinutes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "waiterboard_delivery_minutes",
			Help:    "Minutes from claim to delivery",
			Buckets: []float64{1, 2, 5, 10, 15, 20, 30, 45, 60},
		},
	)
)

// Register registers all collectors with the default registry.
func Register() {
	prometheus.MustRegister(OrdersCreatedTotal)
	prometheus.MustRegister(OrdersClaimedTotal)
	prometheus.MustRegister(OrdersDeliveredTotal)
	prometheus.MustRegister(OrdersReleasedTotal)
	prometheus.MustRegister(TransitionsRejectedTotal)
	prometheus.MustRegister(DeliveryMinutes)
}
