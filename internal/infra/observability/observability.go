// Package observability holds renami's Prometheus metrics.
//
// Metrics are registered on the default registry through promauto and served
// by the API's /metrics route. Recording never affects control flow.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "renami"

// Outcome label values.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// ─── Suggestion Metrics ─────────────────────────────────────────────────────

// SuggestionRequests counts provider calls by operation and result kind.
var SuggestionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "llm",
	Name:      "requests_total",
	Help:      "Provider calls by provider, operation (verify|suggest) and outcome.",
}, []string{"provider", "operation", "outcome"})

// SuggestionLatency tracks provider call latency.
var SuggestionLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "llm",
	Name:      "request_duration_seconds",
	Help:      "Provider call latency in seconds.",
	Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
}, []string{"provider", "operation"})

// ObserveSuggestion records one provider call. outcome is OutcomeOK or the
// error kind identifier.
func ObserveSuggestion(provider, operation, outcome string, elapsed time.Duration) {
	SuggestionRequests.WithLabelValues(provider, operation, outcome).Inc()
	SuggestionLatency.WithLabelValues(provider, operation).Observe(elapsed.Seconds())
}

// ─── Rename Metrics ─────────────────────────────────────────────────────────

// ExtractionResults counts extraction outcomes by kind (ok|blank|failed), plus
// image descriptions (described|describe_failed).
var ExtractionResults = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "extract",
	Name:      "results_total",
	Help:      "Content extraction outcomes by kind.",
}, []string{"kind"})

// RenameResults counts finished files by the stage they ended in.
var RenameResults = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "renamer",
	Name:      "files_total",
	Help:      "Finished files by final stage and outcome.",
}, []string{"stage", "outcome"})

// ObserveRename records one finished file.
func ObserveRename(stage string, success bool) {
	outcome := OutcomeFailed
	if success {
		outcome = OutcomeOK
	}
	RenameResults.WithLabelValues(stage, outcome).Inc()
}

// Undos counts undone renames.
var Undos = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "renamer",
	Name:      "undo_total",
	Help:      "Undo attempts by outcome.",
}, []string{"outcome"})

// ─── Batch Metrics ──────────────────────────────────────────────────────────

// BatchesStarted counts accepted batches.
var BatchesStarted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "batch",
	Name:      "started_total",
	Help:      "Batches accepted for processing.",
})

// BatchesRejected counts batches refused because another one was running.
var BatchesRejected = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "batch",
	Name:      "rejected_total",
	Help:      "Batches rejected while another batch was in progress.",
})

// BatchInProgress is 1 while a batch runs.
var BatchInProgress = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "batch",
	Name:      "in_progress",
	Help:      "1 while a batch is being processed, else 0.",
})

// BatchDuration tracks wall time per batch.
var BatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "batch",
	Name:      "duration_seconds",
	Help:      "Batch wall time in seconds.",
	Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
})

// BatchSize tracks files per batch.
var BatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "batch",
	Name:      "files",
	Help:      "Files per batch.",
	Buckets:   []float64{1, 2, 5, 10, 25, 50, 100},
})
