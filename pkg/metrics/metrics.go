// Package metrics exposes Prometheus collectors for pipeline runs and backend stages.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "meeting_automator"

var (
	// StageRequestsTotal counts backend calls.
	// Labels: stage (transcribe/summarize/action_items), status (success/error)
	StageRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_requests_total",
			Help:      "Total number of backend stage calls by stage and status",
		},
		[]string{"stage", "status"},
	)

	// StageErrorsTotal counts failed backend calls by error kind
	// (network/backend/empty_transcription/malformed_response/unknown).
	StageErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_errors_total",
			Help:      "Total number of backend stage errors by stage and kind",
		},
		[]string{"stage", "kind"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Backend stage call duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by outcome",
		},
		[]string{"outcome"},
	)

	RunsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_active",
			Help:      "Number of pipeline runs currently in flight",
		},
	)
)

// RecordStage records one backend call. errorKind is ignored on success.
func RecordStage(stage string, success bool, errorKind string, durationSeconds float64) {
	status := "success"
	if !success {
		status = "error"
		StageErrorsTotal.WithLabelValues(stage, errorKind).Inc()
	}
	StageRequestsTotal.WithLabelValues(stage, status).Inc()
	StageDuration.WithLabelValues(stage).Observe(durationSeconds)
}

func RecordRunStart() {
	RunsActive.Inc()
}

func RecordRunEnd(outcome string) {
	RunsActive.Dec()
	RunsTotal.WithLabelValues(outcome).Inc()
}
