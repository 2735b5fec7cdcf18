// Package metrics holds the Prometheus collectors shared by the services.
// They register on the default registry and are served at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SwipesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymbro_swipes_total",
			Help: "Recorded swipe actions by type",
		},
		[]string{"action_type"},
	)

	MatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gymbro_matches_total",
			Help: "Matches created",
		},
	)

	// RecommendationsTotal counts served candidates by where they came from:
	// queue, similar, random or exhausted.
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymbro_recommendations_total",
			Help: "Next-profile results by source",
		},
		[]string{"source"},
	)

	NotificationErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gymbro_notification_errors_total",
			Help: "Failed user notifications",
		},
	)

	EventPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gymbro_event_publish_errors_total",
			Help: "Failed Kafka event publishes",
		},
	)

	BroadcastMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymbro_broadcast_messages_total",
			Help: "Broadcast deliveries by outcome",
		},
		[]string{"status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gymbro_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2, 5},
		},
		[]string{"method", "route", "status"},
	)
)
