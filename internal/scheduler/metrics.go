package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supplysnap_schedule_runs_total",
			Help: "Schedule run attempts by outcome",
		},
		[]string{"schedule", "status"}, // success, failure or exhausted
	)

	retriesScheduled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supplysnap_schedule_retries_total",
			Help: "One-shot retry timers armed after failed runs",
		},
		[]string{"schedule"},
	)
)
