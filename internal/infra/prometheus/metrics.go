package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gate request outcomes recorded in GateRequests.
const (
	OutcomeGranted = "granted"
	OutcomeDenied  = "denied"
	OutcomeUnknown = "unknown"
	OutcomeError   = "error"
)

var (
	// GateRequests counts access-gate hits by outcome.
	GateRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "passgate_gate_requests_total",
		Help: "Access gate requests partitioned by outcome.",
	}, []string{"outcome"})

	// VisitsPublished counts visit events handed to JetStream.
	VisitsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "passgate_visits_published_total",
		Help: "Visit events published to the visit stream.",
	})

	// GateDuration observes end-to-end gate handling time.
	GateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "passgate_gate_duration_seconds",
		Help:    "Latency of access gate requests.",
		Buckets: prometheus.DefBuckets,
	})
)
