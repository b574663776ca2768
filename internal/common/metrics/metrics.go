// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StageItemsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stage_items_processed_total",
			Help: "Total number of action items processed per pipeline stage",
		},
		[]string{"stage", "workflow_type"},
	)

	StageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stage_failures_total",
			Help: "Total number of stage failures by error code",
		},
		[]string{"stage", "error_code"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "pipeline_stage_duration_seconds",
			Help: "Duration of stage processing in seconds",
		},
		[]string{"stage"},
	)

	ContractRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_contract_retries_total",
			Help: "Retries triggered by LLM contract violations per stage",
		},
		[]string{"stage"},
	)

	ItemsAutoApproved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_items_auto_approved_total",
			Help: "Action items routed past human review",
		},
		[]string{"workflow_type"},
	)
)
