package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "remit_agent_build_info",
			Help: "Build information of the Remit Agent",
		},
		[]string{"version", "commit", "date"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "remit_agent_stage_duration_seconds",
			Help:    "Duration of pipeline stage invocations",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"stage"},
	)

	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remit_agent_pipeline_runs_total",
			Help: "Pipeline runs by outcome",
		},
		[]string{"outcome"},
	)

	QueryErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "remit_agent_query_errors_total",
			Help: "SQL executions that returned a database error",
		},
	)
)
