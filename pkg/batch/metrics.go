package batch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	identifiersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forge_miner_identifiers_total",
		Help: "Total number of processed identifiers by outcome",
	}, []string{"outcome"}) // committed, rejected, failed, interrupted

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forge_miner_runs_total",
		Help: "Total number of batch runs by outcome",
	}, []string{"outcome"}) // complete, cancelled

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "forge_miner_run_duration_seconds",
		Help:    "Batch run duration",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})
)
