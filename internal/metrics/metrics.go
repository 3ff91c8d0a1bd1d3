package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "courierbot",
			Name:      "turns_total",
			Help:      "Processed turns by activity type.",
		},
		[]string{"activity_type"},
	)

	promptRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "courierbot",
			Name:      "prompt_retries_total",
			Help:      "Prompt validation rejections by prompt name.",
		},
		[]string{"prompt"},
	)

	ordersBooked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "courierbot",
			Name:      "orders_booked_total",
			Help:      "Completed booking wizards.",
		},
	)

	statusChecks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "courierbot",
			Name:      "status_checks_total",
			Help:      "Completed status-check lookups.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(turnsTotal, promptRetries, ordersBooked, statusChecks)
	})
}

// IncTurn increments the counter for an activity type label.
func IncTurn(activityType string) {
	turnsTotal.WithLabelValues(activityType).Inc()
}

// IncPromptRetry increments the rejection counter for a prompt.
func IncPromptRetry(prompt string) {
	promptRetries.WithLabelValues(prompt).Inc()
}

// IncOrderBooked counts a completed booking.
func IncOrderBooked() {
	ordersBooked.Inc()
}

// IncStatusCheck counts a completed status lookup.
func IncStatusCheck() {
	statusChecks.Inc()
}
