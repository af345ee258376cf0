package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forge_miner_pages_fetched_total",
		Help: "Total number of pages returned by page-fetch calls",
	})

	quotaSignalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forge_miner_quota_signals_total",
		Help: "Total number of quota signals returned by page-fetch calls",
	})

	retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forge_miner_fetch_retries_total",
		Help: "Total number of page-fetch retries after a quota backoff",
	})

	walksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forge_miner_walks_total",
		Help: "Total number of pagination walks by outcome",
	}, []string{"outcome"}) // complete, aborted, not_found, quota, error
)
