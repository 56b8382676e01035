package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	paymentAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sugampay_payment_attempts_total",
			Help: "Payment submissions by outcome",
		},
		[]string{"outcome"},
	)

	ordersCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sugampay_orders_created_total",
			Help: "Orders created",
		},
	)

	notificationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sugampay_notification_failures_total",
			Help: "Payment notifications that could not be delivered",
		},
		[]string{"notifier"},
	)
)

func recordAttempt(outcome string) {
	paymentAttemptsTotal.WithLabelValues(outcome).Inc()
}

func recordAttemptError(err error) {
	var outcome string
	switch {
	case IsKind(err, KindValidation):
		outcome = "validation"
	case IsKind(err, KindNotFound):
		outcome = "not_found"
	case IsKind(err, KindConflict):
		outcome = "conflict"
	default:
		outcome = "unavailable"
	}
	recordAttempt(outcome)
}
