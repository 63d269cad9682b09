package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion
	RecordsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracking_records_total",
		Help: "The total number of tracking records durably appended.",
	}, []string{"type"})
	RecordsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracking_rejected_total",
		Help: "The total number of tracking calls rejected before any mutation.",
	}, []string{"reason"})
	SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracking_sessions_started_total",
		Help: "The total number of sessions created.",
	})

	// Broadcast
	EventsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "broadcast_events_published_total",
		Help: "The total number of events published to the live channel.",
	})
	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "broadcast_events_dropped_total",
		Help: "The total number of events dropped for slow subscribers.",
	})
	SubscribersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "broadcast_subscribers_active",
		Help: "The current number of connected dashboard subscribers.",
	})

	// Lifecycle sweep
	SessionsSwept = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lifecycle_sessions_swept_total",
		Help: "The total number of sessions transitioned by the sweep.",
	}, []string{"transition"})
)
