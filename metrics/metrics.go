// Package metrics exposes operational prometheus metrics for the engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_events_ingested_total",
			Help: "Total number of log lines ingested",
		},
		[]string{"source"},
	)

	AlertsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_alerts_generated_total",
			Help: "Total number of alerts generated",
		},
		[]string{"severity"},
	)

	PollCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vigil_poll_cycle_duration_seconds",
			Help:    "Time taken by one poll-ingest-correlate cycle",
			Buckets: prometheus.DefBuckets,
		},
	)

	SourceReadErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_source_read_errors_total",
			Help: "Transient read failures per log source",
		},
		[]string{"source"},
	)

	SnapshotSaveFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vigil_snapshot_save_failures_total",
			Help: "Total number of failed state snapshot saves",
		},
	)
)
