package github

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/forge-miner/pkg/ratelimit"
)

// Prometheus metrics for GitHub API transport.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forge_miner_github_requests_total",
		Help: "Total GitHub API requests by status",
	}, []string{"status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "forge_miner_github_request_duration_seconds",
		Help:    "GitHub API request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forge_miner_github_retries_total",
		Help: "Total number of transport retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "forge_miner_github_retry_backoff_seconds",
		Help:    "Backoff duration for transport retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forge_miner_github_retry_exhausted_total",
		Help: "Total number of times transport retries were exhausted by error class",
	}, []string{"error_class"})
)

// RetryConfig holds the configuration for transport retries.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// classifyResponse categorizes a round trip for retry decisions.
// It returns "" for a successful response.
func classifyResponse(resp *http.Response, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case resp.StatusCode == http.StatusForbidden && resp.Header.Get(ratelimit.HeaderRemaining) == "0":
		return ErrorClassRateLimit
	case resp.StatusCode == http.StatusForbidden && resp.Header.Get(ratelimit.HeaderRetryAfter) != "":
		return ErrorClassRateLimit
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return ErrorClassClient
	case resp.StatusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// retryTransport retries network errors and 5xx responses with exponential
// backoff and jitter.
type retryTransport struct {
	base   http.RoundTripper
	config RetryConfig
	logger zerolog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func newRetryTransport(base http.RoundTripper, config RetryConfig, logger zerolog.Logger) *retryTransport {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	if config.BackoffMultiplier < 1 {
		config.BackoffMultiplier = 1
	}
	return &retryTransport{base: base, config: config, logger: logger, sleep: sleepContext}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RoundTrip implements http.RoundTripper.
func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	backoff := t.config.InitialBackoff

	var (
		resp  *http.Response
		err   error
		class ErrorClass
	)
	for attempt := 1; attempt <= t.config.MaxAttempts; attempt++ {
		if attempt > 1 && req.GetBody != nil {
			body, berr := req.GetBody()
			if berr != nil {
				return nil, fmt.Errorf("rewind request body: %w", berr)
			}
			req.Body = body
		}

		resp, err = t.base.RoundTrip(req)
		class = classifyResponse(resp, err)
		if class == "" {
			if attempt > 1 {
				t.logger.Info().Int("attempt", attempt).Msg("Request succeeded after retry")
			}
			return resp, nil
		}

		if !shouldRetry(class) || ctx.Err() != nil {
			return resp, err
		}
		if attempt >= t.config.MaxAttempts {
			break
		}
		if req.Body != nil && req.GetBody == nil {
			// Body cannot be replayed.
			return resp, err
		}

		if resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		retriesTotal.WithLabelValues(string(class)).Inc()

		// Add jitter (±20% randomness)
		jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
		retryBackoffSeconds.WithLabelValues(string(class)).Observe(jitter.Seconds())

		t.logger.Debug().
			Str("error_class", string(class)).
			Int("attempt", attempt).
			Dur("backoff", jitter).
			Msg("Retrying request after backoff")

		if serr := t.sleep(ctx, jitter); serr != nil {
			t.logger.Warn().
				Str("error_class", string(class)).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return nil, serr
		}

		backoff = time.Duration(float64(backoff) * t.config.BackoffMultiplier)
		if backoff > t.config.MaxBackoff {
			backoff = t.config.MaxBackoff
		}
	}

	retryExhaustedTotal.WithLabelValues(string(class)).Inc()
	t.logger.Warn().
		Str("error_class", string(class)).
		Int("max_attempts", t.config.MaxAttempts).
		Msg("Retry attempts exhausted")

	if err != nil {
		return nil, fmt.Errorf("%w after %d attempts: %v", ErrRetryExhausted, t.config.MaxAttempts, err)
	}
	return resp, nil
}

// headerObserver feeds quota headers of every response to the tracker and
// keeps the last seen headers for quota signals.
type headerObserver struct {
	base    http.RoundTripper
	tracker *ratelimit.Tracker
	logger  zerolog.Logger

	mu   sync.Mutex
	last http.Header
}

// RoundTrip implements http.RoundTripper.
func (o *headerObserver) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := o.base.RoundTrip(req)
	requestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		requestsTotal.WithLabelValues("error").Inc()
		return resp, err
	}
	requestsTotal.WithLabelValues(fmt.Sprintf("%d", resp.StatusCode)).Inc()

	o.mu.Lock()
	o.last = resp.Header.Clone()
	o.mu.Unlock()

	if o.tracker != nil {
		if uerr := o.tracker.UpdateFromHeaders(req.Context(), resp.Header); uerr != nil {
			o.logger.Warn().Err(uerr).Msg("Failed to update quota summary from headers")
		}
	}
	return resp, nil
}

// lastHeaders returns the headers of the most recent response.
func (o *headerObserver) lastHeaders() http.Header {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.last == nil {
		return http.Header{}
	}
	return o.last.Clone()
}
