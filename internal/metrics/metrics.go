// Package metrics defines the service's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courtside_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "courtside_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ReservationsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "courtside_reservations_created_total",
			Help: "Total number of reservations created",
		},
	)

	ReservationJoinsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "courtside_reservation_joins_total",
			Help: "Total number of seats taken via join",
		},
	)

	ReservationLeavesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "courtside_reservation_leaves_total",
			Help: "Total number of seats released via leave",
		},
	)

	BlockTogglesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courtside_block_toggles_total",
			Help: "Total number of admin block toggles",
		},
		[]string{"action"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordReservationCreated() {
	ReservationsCreatedTotal.Inc()
}

func RecordReservationJoin() {
	ReservationJoinsTotal.Inc()
}

func RecordReservationLeave() {
	ReservationLeavesTotal.Inc()
}

func RecordBlockToggle(action string) {
	BlockTogglesTotal.WithLabelValues(action).Inc()
}
