// Package metrics exposes the worker's Prometheus instrumentation. All
// collectors are package-level and registered via promauto so every
// component increments them directly without plumbing a registry around.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingress / egress

	ElementsIngestedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamteam_elements_ingested_total",
		Help: "Stream elements decoded from ingress envelopes",
	}, []string{"stream"})

	DecodeErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamteam_decode_errors_total",
		Help: "Envelopes that failed to decode or mismatched their source stream",
	}, []string{"stream", "reason"})

	DuplicateEnvelopesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamteam_duplicate_envelopes_total",
		Help: "Envelopes discarded by ingress deduplication after a partition restart",
	}, []string{"stream"})

	ElementsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamteam_elements_published_total",
		Help: "Output elements published on egress streams",
	}, []string{"stream"})

	EgressErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamteam_egress_errors_total",
		Help: "Egress refusals (internal/raw elements) and publish failures",
	}, []string{"stream", "reason"})

	EgressQueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "streamteam_egress_queue_utilization",
		Help: "Egress producer queue fill ratio (0-1)",
	})

	DLQEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamteam_dlq_entries_total",
		Help: "Elements handed to the dead-letter sink after publish failures",
	}, []string{"stream", "reason"})

	// Graph / detectors

	GraphElementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamteam_graph_elements_total",
		Help: "Elements evaluated through a processor graph",
	}, []string{"graph"})

	OperatorErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamteam_operator_errors_total",
		Help: "Schema/store errors raised and swallowed at operator boundaries",
	}, []string{"operator", "kind"})

	DetectorEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamteam_detector_events_total",
		Help: "Events emitted per detector output stream",
	}, []string{"stream"})

	ProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "streamteam_element_processing_seconds",
		Help:    "Wall time spent evaluating one element through the graph",
		Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14),
	}, []string{"graph"})

	BallSampleLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "streamteam_ball_sample_latency_seconds",
		Help:    "Ingest-to-processing latency of every ingested sample with an append timestamp (ball and player samples alike), when latency tracing is enabled",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	// Active keys / windowing

	ActiveKeys = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "streamteam_active_keys",
		Help: "Keys currently in the active set",
	})

	TicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamteam_window_ticks_total",
		Help: "Window graph invocations",
	})

	KeysEvictedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamteam_keys_evicted_total",
		Help: "Keys dropped from the active set with their state swept",
	})

	// Transport resilience

	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "streamteam_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
	}, []string{"name"})

	BackpressureLevel = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "streamteam_backpressure_level",
		Help: "Egress backpressure level (0=none .. 4=critical)",
	})
)
