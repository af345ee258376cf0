package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for quota tracking.
var (
	quotaRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "forge_miner_quota_remaining",
		Help: "Requests remaining in the current forge API quota window",
	})

	quotaLimit = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "forge_miner_quota_limit",
		Help: "Request budget of the current forge API quota window",
	})

	quotaUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forge_miner_quota_updates_total",
		Help: "Total quota summary updates by source",
	}, []string{"source"})
)

// Tracker keeps the latest quota Summary in memory and, when a Redis client
// is configured, shares it across processes.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger

	mu   sync.RWMutex
	last *Summary
}

// NewTracker creates a new quota tracker. redisClient may be nil.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		logger: logger,
	}
}

// GetState returns the current quota summary. Redis state wins over the
// local copy; with neither available an unknown summary (Limit -1) is
// returned.
func (t *Tracker) GetState(ctx context.Context) (*Summary, error) {
	if t.redis != nil {
		s, err := t.loadFromRedis(ctx)
		if err != nil {
			return nil, err
		}
		if s != nil {
			return s, nil
		}
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.last != nil {
		s := *t.last
		return &s, nil
	}

	t.logger.Debug().Msg("No quota summary recorded yet, returning unknown state")
	return &Summary{Limit: -1, Remaining: -1, Used: -1}, nil
}

// Summary implements the batch processor's rate-limit summary source.
func (t *Tracker) Summary(ctx context.Context) (Summary, error) {
	s, err := t.GetState(ctx)
	if err != nil {
		return Summary{}, err
	}
	return *s, nil
}

func (t *Tracker) loadFromRedis(ctx context.Context) (*Summary, error) {
	vals, err := t.redis.MGet(ctx,
		RedisKeyLimit, RedisKeyRemaining, RedisKeyUsed, RedisKeyResetAt, RedisKeyLastUpdate,
	).Result()
	if err != nil {
		return nil, fmt.Errorf("get quota summary: %w", err)
	}
	if vals[0] == nil || vals[1] == nil {
		return nil, nil
	}

	s := &Summary{}
	if s.Limit, err = redisInt(vals[0]); err != nil {
		return nil, fmt.Errorf("parse limit: %w", err)
	}
	if s.Remaining, err = redisInt(vals[1]); err != nil {
		return nil, fmt.Errorf("parse remaining: %w", err)
	}
	if vals[2] != nil {
		if s.Used, err = redisInt(vals[2]); err != nil {
			return nil, fmt.Errorf("parse used: %w", err)
		}
	}
	if vals[3] != nil {
		resetUnix, err := redisInt(vals[3])
		if err != nil {
			return nil, fmt.Errorf("parse reset timestamp: %w", err)
		}
		s.ResetAt = time.Unix(int64(resetUnix), 0)
	}
	if str, ok := vals[4].(string); ok && str != "" {
		if err := json.Unmarshal([]byte(str), &s.LastUpdate); err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
	}

	return s, nil
}

func redisInt(v interface{}) (int, error) {
	str, ok := v.(string)
	if !ok {
		return 0, errors.New("unexpected redis value type")
	}
	return strconv.Atoi(str)
}

// UpdateFromHeaders parses the X-RateLimit-* headers of a forge response and
// records the resulting summary. Responses without quota headers are ignored.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	remainStr := headers.Get(HeaderRemaining)
	if remainStr == "" {
		return nil
	}

	remaining, err := strconv.Atoi(remainStr)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderRemaining, err)
	}

	limitStr := headers.Get(HeaderLimit)
	if limitStr == "" {
		return fmt.Errorf("%s header missing", HeaderLimit)
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderLimit, err)
	}

	used := limit - remaining
	if usedStr := headers.Get(HeaderUsed); usedStr != "" {
		if used, err = strconv.Atoi(usedStr); err != nil {
			return fmt.Errorf("parse %s header: %w", HeaderUsed, err)
		}
	}

	var resetAt time.Time
	if resetStr := headers.Get(HeaderReset); resetStr != "" {
		ts, err := strconv.ParseInt(resetStr, 10, 64)
		if err != nil {
			return fmt.Errorf("parse %s header: %w", HeaderReset, err)
		}
		resetAt = time.Unix(ts, 0)
	}

	return t.Record(ctx, Summary{
		Limit:      limit,
		Remaining:  remaining,
		Used:       used,
		ResetAt:    resetAt,
		LastUpdate: time.Now(),
	}, "headers")
}

// Record stores a summary obtained from any source (headers, status query).
func (t *Tracker) Record(ctx context.Context, s Summary, source string) error {
	if s.LastUpdate.IsZero() {
		s.LastUpdate = time.Now()
	}

	t.mu.Lock()
	t.last = &s
	t.mu.Unlock()

	quotaRemaining.Set(float64(s.Remaining))
	quotaLimit.Set(float64(s.Limit))
	quotaUpdatesTotal.WithLabelValues(source).Inc()

	if t.redis != nil {
		lastUpdateJSON, err := json.Marshal(s.LastUpdate)
		if err != nil {
			return fmt.Errorf("marshal last update: %w", err)
		}

		pipe := t.redis.Pipeline()
		pipe.Set(ctx, RedisKeyLimit, s.Limit, 0)
		pipe.Set(ctx, RedisKeyRemaining, s.Remaining, 0)
		pipe.Set(ctx, RedisKeyUsed, s.Used, 0)
		pipe.Set(ctx, RedisKeyResetAt, s.ResetAt.Unix(), 0)
		pipe.Set(ctx, RedisKeyLastUpdate, lastUpdateJSON, 0)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("store quota summary in redis: %w", err)
		}
	}

	logEvent := t.logger.Debug()
	if s.Exhausted() {
		logEvent = t.logger.Warn()
	}
	logEvent.
		Int("limit", s.Limit).
		Int("remaining", s.Remaining).
		Time("reset_at", s.ResetAt).
		Str("source", source).
		Msg("Quota summary updated")

	return nil
}

// Signal returns a QuotaSignal derived from the latest summary's reset time,
// or DefaultWaitSeconds when no reset time is known.
func (t *Tracker) Signal(now time.Time) *QuotaSignal {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.last == nil || t.last.ResetAt.IsZero() {
		return &QuotaSignal{
			WaitSeconds: DefaultWaitSeconds,
			ResetAt:     now.Add(DefaultWaitSeconds * time.Second),
		}
	}
	return NewQuotaSignal(t.last.ResetAt, now)
}
