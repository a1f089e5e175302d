package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reservationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservations_total",
		Help: "Reservation operations that completed, by operation",
	}, []string{"operation"})

	seatsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_seats_total",
		Help: "Seats taken from or given back to flight inventory",
	}, []string{"direction"})

	failuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_failures_total",
		Help: "Failed workflow operations, by operation and error kind",
	}, []string{"operation", "kind"})

	operationDuration = promauto.NewSummaryVec(prometheus.SummaryOpts{
		Name:       "reservation_operation_duration_seconds",
		Help:       "Duration of workflow operations in seconds",
		Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
	}, []string{"operation"})

	eventsPublishFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_events_publish_failed_total",
		Help: "Reservation events that could not be published",
	}, []string{"event"})
)

const (
	SeatsDebited  = "debited"
	SeatsCredited = "credited"
)

func ReservationDone(operation string) {
	reservationsTotal.WithLabelValues(operation).Inc()
}

func Seats(direction string, n int) {
	if n > 0 {
		seatsTotal.WithLabelValues(direction).Add(float64(n))
	}
}

func Failure(operation, kind string) {
	failuresTotal.WithLabelValues(operation, kind).Inc()
}

// Observe records how long operation took since start.
func Observe(operation string, start time.Time) {
	operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func PublishFailed(event string) {
	eventsPublishFailedTotal.WithLabelValues(event).Inc()
}
