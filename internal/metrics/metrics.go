package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Bookings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barbershop_bookings_total",
			Help: "Booking attempts by outcome",
		},
		[]string{"outcome"}, // created, replaced, unchanged, conflict, rejected, error
	)

	Cancellations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barbershop_cancellations_total",
			Help: "Reservation cancellations",
		},
		[]string{"by"}, // client, admin
	)

	BlockChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barbershop_block_changes_total",
			Help: "Admin block and unblock writes",
		},
		[]string{"kind", "action"}, // day|slot, block|unblock
	)

	BulkFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barbershop_bulk_unblock_failures_total",
			Help: "Individual removals that failed during a bulk unblock",
		},
		[]string{"kind"},
	)

	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barbershop_store_operations_total",
			Help: "Remote store operations",
		},
		[]string{"operation", "path", "status"},
	)

	MirrorUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barbershop_mirror_updates_total",
			Help: "Live snapshots applied to the mirror",
		},
		[]string{"feed", "status"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barbershop_http_requests_total",
			Help: "HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "barbershop_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func RecordBooking(outcome string) {
	Bookings.WithLabelValues(outcome).Inc()
}

func RecordCancellation(by string) {
	Cancellations.WithLabelValues(by).Inc()
}

func RecordBlockChange(kind, action string, n int) {
	BlockChanges.WithLabelValues(kind, action).Add(float64(n))
}

func RecordBulkFailures(kind string, n int) {
	BulkFailures.WithLabelValues(kind).Add(float64(n))
}

// RecordStoreOperation labels by top-level collection only to keep
// cardinality bounded.
func RecordStoreOperation(operation, collection string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	StoreOperations.WithLabelValues(operation, collection, status).Inc()
}

func RecordMirrorUpdate(feed string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	MirrorUpdates.WithLabelValues(feed, status).Inc()
}

func RecordHTTPRequest(method, route, status string, seconds float64) {
	HTTPRequests.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(seconds)
}
