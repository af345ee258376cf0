// Package countdown turns a "seconds to wait" quota signal into an observable,
// cancellable countdown. Each second of the wait is published as a State so a
// UI can render a progress indicator and a "rate limit exhausted" banner.
package countdown

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for backoff countdowns.
var (
	backoffActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "forge_miner_backoff_active",
		Help: "1 while a quota backoff countdown is running",
	})

	backoffRemainingSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "forge_miner_backoff_remaining_seconds",
		Help: "Seconds remaining in the current quota backoff countdown",
	})

	backoffsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forge_miner_backoffs_total",
		Help: "Total number of quota backoff countdowns by outcome",
	}, []string{"outcome"})

	backoffSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "forge_miner_backoff_seconds",
		Help:    "Total countdown length (wait plus margin) in seconds",
		Buckets: []float64{5, 30, 60, 300, 900, 1800, 3600},
	})
)

// State is one observable step of a countdown.
type State struct {
	// TotalSeconds is the full countdown length, safety margin included.
	TotalSeconds int `json:"total_seconds"`

	// RemainingSeconds decreases by one per tick while Active.
	RemainingSeconds int `json:"remaining_seconds"`

	// Active is true from the first tick until the wait has elapsed.
	Active bool `json:"active"`
}

// Idle is the state reported when no countdown is running.
var Idle = State{}

// Publisher receives countdown updates.
type Publisher interface {
	Publish(State)
}

// PublisherFunc adapts a plain function to a Publisher.
type PublisherFunc func(State)

// Publish calls f(s).
func (f PublisherFunc) Publish(s State) { f(s) }

// Clock abstracts time so countdowns can be driven deterministically in tests.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Config holds countdown configuration.
type Config struct {
	// Margin is added to every positive wait so retries never land exactly
	// on the quota reset. Rounded down to whole seconds.
	Margin time.Duration

	// Tick is the interval between published updates.
	Tick time.Duration

	// Clock drives the ticks (default: wall clock).
	Clock Clock
}

// DefaultConfig returns the default countdown configuration.
func DefaultConfig() Config {
	return Config{
		Margin: 3 * time.Second,
		Tick:   1 * time.Second,
		Clock:  realClock{},
	}
}

// Countdown is the single writer of the backoff State.
type Countdown struct {
	config    Config
	publisher Publisher
	logger    zerolog.Logger

	mu    sync.RWMutex
	state State
}

// New creates a countdown. A nil publisher discards updates.
func New(cfg Config, publisher Publisher, logger zerolog.Logger) *Countdown {
	if cfg.Tick <= 0 {
		cfg.Tick = 1 * time.Second
	}
	if cfg.Margin < 0 {
		cfg.Margin = 0
	}
	if cfg.Clock == nil {
		cfg.Clock = realClock{}
	}
	if publisher == nil {
		publisher = PublisherFunc(func(State) {})
	}

	return &Countdown{
		config:    cfg,
		publisher: publisher,
		logger:    logger,
	}
}

// State returns the most recently published state.
func (c *Countdown) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Run waits waitSeconds plus the configured margin, publishing one State per
// tick. It resolves exactly once: nil when the countdown reaches zero, or
// ctx.Err() if the context is cancelled first. A wait of zero or less returns
// immediately without publishing anything.
func (c *Countdown) Run(ctx context.Context, waitSeconds int) error {
	if waitSeconds <= 0 {
		return nil
	}

	total := waitSeconds + int(c.config.Margin/time.Second)

	c.logger.Warn().
		Int("wait_seconds", waitSeconds).
		Int("total_seconds", total).
		Msg("Quota exhausted - starting backoff countdown")

	backoffActive.Set(1)
	backoffSeconds.Observe(float64(total))

	// The first update is already active, so no inactive state is ever
	// visible between the signal and the first tick.
	c.publish(State{TotalSeconds: total, RemainingSeconds: total, Active: true})

	for remaining := total; remaining > 0; {
		select {
		case <-ctx.Done():
			c.publish(State{TotalSeconds: total, RemainingSeconds: Idle.RemainingSeconds, Active: false})
			backoffsTotal.WithLabelValues("cancelled").Inc()
			c.logger.Debug().
				Int("remaining_seconds", remaining).
				Msg("Backoff countdown cancelled")
			return ctx.Err()
		case <-c.config.Clock.After(c.config.Tick):
		}

		remaining--
		c.publish(State{TotalSeconds: total, RemainingSeconds: remaining, Active: remaining > 0})
	}

	backoffsTotal.WithLabelValues("elapsed").Inc()
	c.logger.Info().Int("total_seconds", total).Msg("Backoff countdown elapsed")
	return nil
}

// Wait implements pagination.Backoff.
func (c *Countdown) Wait(ctx context.Context, waitSeconds int) error {
	return c.Run(ctx, waitSeconds)
}

func (c *Countdown) publish(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()

	if s.Active {
		backoffActive.Set(1)
	} else {
		backoffActive.Set(0)
	}
	backoffRemainingSeconds.Set(float64(s.RemainingSeconds))

	c.publisher.Publish(s)
}
