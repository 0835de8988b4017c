package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_events_ingested_total",
			Help: "Total number of events accepted into the pipeline",
		},
		[]string{"source"},
	)

	EventsDiscarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_events_discarded_total",
			Help: "Total number of events discarded at the ingestion boundary",
		},
		[]string{"reason"},
	)

	AlertsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_alerts_generated_total",
			Help: "Total number of alerts generated",
		},
		[]string{"type", "severity"},
	)

	AnalyzerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_analyzer_failures_total",
			Help: "Total number of analyzer evaluation failures",
		},
		[]string{"analyzer"},
	)

	EventProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "argus_event_processing_duration_seconds",
			Help:    "Time taken to run all analyzers over one event",
			Buckets: prometheus.DefBuckets,
		},
	)

	SinkEmitFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "argus_sink_emit_failures_total",
			Help: "Total number of failed alert sink emissions",
		},
	)

	TriggerPolls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_trigger_polls_total",
			Help: "Total number of trigger rule poll cycles",
		},
		[]string{"rule", "result"},
	)

	TriggerWorkersAlive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "argus_trigger_workers_alive",
			Help: "Number of trigger rule workers currently running",
		},
	)

	SignatureMatchTimeouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "argus_signature_match_timeouts_total",
			Help: "Total number of signature pattern matches aborted by timeout",
		},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_cache_hits_total",
			Help: "Total number of feature cache hits",
		},
		[]string{"backend"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_cache_misses_total",
			Help: "Total number of feature cache misses",
		},
		[]string{"backend"},
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_cache_errors_total",
			Help: "Total number of feature cache errors",
		},
		[]string{"backend", "operation"},
	)
)
