package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OperationsRun = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "omcli_operations_total",
		Help: "Total number of operation runs, labelled by operation ID and final state.",
	}, []string{"operation_id", "state"})

	ActionsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "omcli_actions_executed_total",
		Help: "Total number of actions executed, labelled by type and status.",
	}, []string{"action_type", "status"})

	ActionsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "omcli_actions_skipped_total",
		Help: "Total number of actions skipped by their skip conditions, labelled by type.",
	}, []string{"action_type"})

	LoopRepeats = promauto.NewCounter(prometheus.CounterOpts{
		Name: "omcli_loop_repeats_total",
		Help: "Total number of loop blocks the user chose to repeat.",
	})

	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "omcli_api_requests_total",
		Help: "Total number of API_REQUEST calls, labelled by API ID and outcome.",
	}, []string{"api_id", "outcome"})

	ActionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "omcli_action_duration_ms",
		Help:    "Action execution latency in milliseconds, prompts included.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 10000},
	}, []string{"action_type"})

	TreeReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "omcli_tree_reloads_total",
		Help: "Total number of operation tree reload attempts, labelled by result.",
	}, []string{"result"})
)
