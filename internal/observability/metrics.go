package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TrainersOnline = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "trainer_marketplace", Name: "trainers_online", Help: "Number of trainers currently online"})

	PresenceToggles = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "trainer_marketplace", Name: "presence_toggles_total", Help: "Presence transitions by target state and outcome"},
		[]string{"target", "outcome"},
	)

	LocationSamples = promauto.NewCounter(prometheus.CounterOpts{Namespace: "trainer_marketplace", Name: "location_samples_total", Help: "Location samples emitted by active feeds"})
	LocationErrors  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "trainer_marketplace", Name: "location_errors_total", Help: "Transient location fix failures"})

	RequestsIngested = promauto.NewCounter(prometheus.CounterOpts{Namespace: "trainer_marketplace", Name: "booking_requests_ingested_total", Help: "Booking requests accepted into the store"})
	BookingResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "trainer_marketplace", Name: "booking_responses_total", Help: "Booking responses by action and outcome"},
		[]string{"action", "outcome"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "trainer_marketplace", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "trainer_marketplace",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
