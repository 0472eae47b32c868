package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Connection metrics
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "callwire_connections_active",
			Help: "Live signaling connections",
		},
	)

	AdmissionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callwire_admissions_rejected_total",
			Help: "Connections refused before upgrade",
		},
		[]string{"reason"}, // "auth" or "rate_limited"
	)

	// Event metrics
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callwire_events_total",
			Help: "Inbound client events",
		},
		[]string{"event"},
	)

	EventErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callwire_event_errors_total",
			Help: "Inbound client events rejected with an error",
		},
		[]string{"code"},
	)

	EventDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "callwire_event_duration_seconds",
			Help:    "Time to handle one inbound event",
			Buckets: []float64{.00005, .0001, .0005, .001, .005, .01, .05},
		},
	)

	// Call metrics
	CallsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callwire_calls_started_total",
			Help: "Calls that started ringing",
		},
		[]string{"type"}, // "audio" or "video"
	)

	CallsEnded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callwire_calls_ended_total",
			Help: "Calls that reached Ended",
		},
		[]string{"reason"},
	)

	SignalsRelayed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callwire_signals_relayed_total",
			Help: "Signaling payloads forwarded between call parties",
		},
		[]string{"type"},
	)

	// Delivery metrics
	FramesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callwire_frames_dropped_total",
			Help: "Outbound frames not queued",
		},
		[]string{"reason"}, // "backpressure", "closed" or "offline"
	)
)
