package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	reservationCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "comedor",
			Name:      "reservation_created_total",
			Help:      "Count of reservation submissions by outcome.",
		},
		[]string{"outcome"},
	)

	guardRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "comedor",
			Name:      "guard_rejected_total",
			Help:      "Count of duplicate cart operations suppressed by the re-entrancy guard.",
		},
	)

	gatewayErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "comedor",
			Name:      "gateway_errors_total",
			Help:      "Count of failed backend gateway calls by operation.",
		},
		[]string{"operation"},
	)

	shiftSwitched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "comedor",
			Name:      "shift_switched_total",
			Help:      "Count of active shift switches by target shift.",
		},
		[]string{"shift"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(reservationCreated, guardRejected, gatewayErrors, shiftSwitched)
	})
}

func IncReservationCreated(outcome string) {
	reservationCreated.WithLabelValues(outcome).Inc()
}

func IncGuardRejected() {
	guardRejected.Inc()
}

func IncGatewayError(operation string) {
	gatewayErrors.WithLabelValues(operation).Inc()
}

func IncShiftSwitched(shift string) {
	shiftSwitched.WithLabelValues(shift).Inc()
}
