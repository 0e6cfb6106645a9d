package rules

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	exceptionsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tolerance_exceptions_created_total",
			Help: "Exceptions created by rule type.",
		},
		[]string{"rule_type"},
	)
	exceptionDuplicatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tolerance_exception_duplicates_total",
			Help: "Exception creations skipped because an active exception appeared concurrently.",
		},
		[]string{"rule_type"},
	)
	notificationsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tolerance_notifications_created_total",
			Help: "Notifications created for new exceptions by rule type.",
		},
		[]string{"rule_type"},
	)
	ruleErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tolerance_rule_errors_total",
			Help: "Rule evaluations that failed, by rule type.",
		},
		[]string{"rule_type"},
	)
	ruleEvaluationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tolerance_rule_evaluation_duration_seconds",
			Help:    "Duration of a single rule evaluation.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		},
		[]string{"rule_type"},
	)
)
