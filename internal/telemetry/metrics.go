package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// SamplesReceived counts provider samples applied to the tracker
	SamplesReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "location_tracker",
			Name:      "samples_received_total",
			Help:      "Total number of location samples applied to the tracker",
		},
	)

	// SamplesDropped counts provider samples the tracker ignored
	SamplesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "location_tracker",
			Name:      "samples_dropped_total",
			Help:      "Total number of location samples dropped by the tracker",
		},
		[]string{"reason"},
	)

	// GeocodeRequests counts address resolutions by outcome (ok, not_available, error)
	GeocodeRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "location_tracker",
			Name:      "geocode_requests_total",
			Help:      "Total number of reverse geocoding requests by outcome",
		},
		[]string{"outcome"},
	)

	// StaleAddressesDiscarded counts geocode results dropped because a newer sample became current
	StaleAddressesDiscarded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "location_tracker",
			Name:      "stale_addresses_discarded_total",
			Help:      "Total number of geocode results discarded for superseded samples",
		},
	)

	// TrackingActive is 1 while the tracker receives continuous updates
	TrackingActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "location_tracker",
			Name:      "tracking_active",
			Help:      "Whether continuous location tracking is active",
		},
	)

	// NotificationsDelivered counts notifications handed to subscribers
	NotificationsDelivered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "location_tracker",
			Name:      "notifications_delivered_total",
			Help:      "Total number of notifications delivered",
		},
	)

	once sync.Once
)

// InitMetrics registers all metrics with the default Prometheus registry.
// Safe to call more than once.
func InitMetrics() {
	once.Do(func() {
		prometheus.DefaultRegisterer.Register(SamplesReceived)
		prometheus.DefaultRegisterer.Register(SamplesDropped)
		prometheus.DefaultRegisterer.Register(GeocodeRequests)
		prometheus.DefaultRegisterer.Register(StaleAddressesDiscarded)
		prometheus.DefaultRegisterer.Register(TrackingActive)
		prometheus.DefaultRegisterer.Register(NotificationsDelivered)
	})
}
