package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup results.
const (
	resultHit     = "hit"
	resultMiss    = "miss"
	resultExpired = "expired"
	resultInvalid = "invalid"
)

var (
	lookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forge_miner_page_cache_lookups_total",
			Help: "Page cache lookups by resource and result (hit, miss, expired, invalid)",
		},
		[]string{"resource", "result"},
	)

	bytesMoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forge_miner_page_cache_bytes_total",
			Help: "Bytes read from or written to the page cache",
		},
		[]string{"resource", "direction"}, // "read", "write"
	)

	purged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "forge_miner_page_cache_purged_total",
			Help: "Cached pages removed by purges",
		},
	)

	opErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forge_miner_page_cache_errors_total",
			Help: "Redis errors by page cache operation",
		},
		[]string{"operation"}, // "get", "set", "delete", "purge"
	)
)
