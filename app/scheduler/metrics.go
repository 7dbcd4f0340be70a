package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline ticks partitioned by outcome (completed, failed, skipped)
	pipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Total number of pipeline runs by outcome",
		},
		[]string{"outcome"},
	)

	// Per-tenant stage failures inside a run
	pipelineTenantFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_tenant_failures_total",
			Help: "Total number of per-tenant pipeline failures by stage",
		},
		[]string{"stage"},
	)

	// Reconciliation outcomes across all tenants
	pipelineRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_records_total",
			Help: "Total number of records processed by reconciliation outcome",
		},
		[]string{"outcome"},
	)

	// Records pushed to remote audiences
	pipelineSyncedRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_synced_records_total",
			Help: "Total number of records uploaded or failed during audience sync",
		},
		[]string{"result"},
	)

	// Records expired by the retention lifecycle
	pipelineExpiredRecords = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_expired_records_total",
			Help: "Total number of identity records removed after retention ran out",
		},
	)

	// Run duration
	pipelineRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeline_run_duration_seconds",
			Help:    "Duration of full pipeline runs in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)
)
