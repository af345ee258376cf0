// Package metrics exposes the Prometheus metrics of forge-miner.
// All metrics are defined in their respective packages (github, pagination,
// batch, cache, ratelimit, countdown) via promauto, to keep packages
// self-contained and avoid circular dependencies. This package serves them.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Registry is the default Prometheus registry used by forge-miner.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer gathers the metrics registered in Registry.
var Gatherer = prometheus.DefaultGatherer

// NewHandler returns the HTTP handler serving /metrics and /health.
func NewHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", healthHandler)
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// Serve runs the metrics server on addr until ctx is done.
func Serve(ctx context.Context, addr string, logger zerolog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("Serving metrics")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown metrics server: %w", err)
		}
		return nil
	}
}

// Metrics Documentation
//
// Transport Metrics (pkg/github):
//   - forge_miner_github_requests_total{status} (Counter): GraphQL requests by HTTP status
//   - forge_miner_github_request_duration_seconds (Histogram): Request duration
//   - forge_miner_github_retries_total{error_class} (Counter): Transport retry attempts
//   - forge_miner_github_retry_backoff_seconds{error_class} (Histogram): Transport backoff duration
//   - forge_miner_github_retry_exhausted_total{error_class} (Counter): Requests that exhausted retries
//
// Quota Metrics (pkg/ratelimit):
//   - forge_miner_quota_remaining (Gauge): Requests left in the current window
//   - forge_miner_quota_limit (Gauge): Request budget of the current window
//   - forge_miner_quota_updates_total{source} (Counter): Summary updates (headers, query)
//
// Engine Metrics (pkg/pagination, pkg/countdown):
//   - forge_miner_pages_fetched_total (Counter): Pages fetched
//   - forge_miner_quota_signals_total (Counter): Fetches answered with a quota signal
//   - forge_miner_fetch_retries_total (Counter): Wait-and-retry rounds
//   - forge_miner_walks_total{outcome} (Counter): Walks by outcome (complete, aborted, not_found, quota, error)
//   - forge_miner_backoff_active (Gauge): 1 while a countdown runs
//   - forge_miner_backoff_remaining_seconds (Gauge): Seconds left on the countdown
//   - forge_miner_backoffs_total{outcome} (Counter): Countdowns by outcome
//   - forge_miner_backoff_seconds (Histogram): Countdown lengths
//
// Run Metrics (pkg/batch):
//   - forge_miner_identifiers_total{outcome} (Counter): Identifiers by outcome
//   - forge_miner_runs_total{outcome} (Counter): Runs by outcome
//   - forge_miner_run_duration_seconds (Histogram): Run duration
//
// Cache Metrics (pkg/cache):
//   - forge_miner_page_cache_lookups_total{resource,result} (Counter): Lookups by result
//   - forge_miner_page_cache_bytes_total{resource,direction} (Counter): Bytes read and written
//   - forge_miner_page_cache_purged_total (Counter): Pages removed by purges
//   - forge_miner_page_cache_errors_total{operation} (Counter): Redis errors
//
// Example Prometheus Queries:
//
//   # Share of fetches hitting the quota
//   rate(forge_miner_quota_signals_total[5m]) / rate(forge_miner_pages_fetched_total[5m])
//
//   # Quota nearly exhausted
//   forge_miner_quota_remaining < 100
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(forge_miner_github_request_duration_seconds_bucket[5m]))
