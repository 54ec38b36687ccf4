package aggregator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	captureDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "supplysnap_capture_duration_seconds",
			Help:    "Time taken to fetch and merge all sources",
			Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120},
		},
	)

	captureTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supplysnap_capture_total",
			Help: "Total number of capture attempts",
		},
		[]string{"status"}, // success or error
	)

	sourceFetchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supplysnap_source_fetch_failures_total",
			Help: "Per-source fetch failures substituted with empty results",
		},
		[]string{"source"},
	)
)
