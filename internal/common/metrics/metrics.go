// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StageTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_stage_transitions_total",
			Help: "Total number of workflow stage transitions",
		},
		[]string{"from", "to"},
	)

	GateRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_gate_rejections_total",
			Help: "Total number of failed admission gates by gate name",
		},
		[]string{"gate"},
	)

	ExternalCallFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_external_call_failures_total",
			Help: "Total number of failed external service calls",
		},
		[]string{"service", "error_code"},
	)

	ExternalCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "onboarding_external_call_duration_seconds",
			Help: "Duration of external service calls in seconds",
		},
		[]string{"service"},
	)
)
