// Package store persists finished run reports in Redis.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Sternrassler/forge-miner/pkg/batch"
)

// Redis keys for report storage.
const (
	keyPrefix = "forge_miner:run:"
	indexKey  = "forge_miner:runs"
)

// ErrNotFound is returned when no report exists for a run ID.
var ErrNotFound = errors.New("run report not found")

// DefaultTTL keeps reports for a week.
const DefaultTTL = 7 * 24 * time.Hour

// RedisStore stores reports as JSON with a sorted-set index by finish time.
type RedisStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisStore creates a store. A ttl <= 0 uses DefaultTTL.
func NewRedisStore(redisClient *redis.Client, ttl time.Duration) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{redis: redisClient, ttl: ttl}
}

// Save implements batch.ReportStore.
func (s *RedisStore) Save(ctx context.Context, r *batch.Report) error {
	if r == nil || r.RunID == "" {
		return fmt.Errorf("report without run id")
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	finished := r.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, keyPrefix+r.RunID, data, s.ttl)
	pipe.ZAdd(ctx, indexKey, redis.Z{Score: float64(finished.Unix()), Member: r.RunID})
	// Drop index entries whose report has expired.
	pipe.ZRemRangeByScore(ctx, indexKey, "-inf", fmt.Sprintf("(%d", time.Now().Add(-s.ttl).Unix()))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store report %s: %w", r.RunID, err)
	}
	return nil
}

// Load returns the report of a run.
func (s *RedisStore) Load(ctx context.Context, runID string) (*batch.Report, error) {
	data, err := s.redis.Get(ctx, keyPrefix+runID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s: %w", runID, ErrNotFound)
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var r batch.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", runID, err)
	}
	return &r, nil
}

// Delete removes a report and its index entry.
func (s *RedisStore) Delete(ctx context.Context, runID string) error {
	pipe := s.redis.TxPipeline()
	pipe.Del(ctx, keyPrefix+runID)
	pipe.ZRem(ctx, indexKey, runID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete report %s: %w", runID, err)
	}
	return nil
}

// List returns up to limit run IDs, newest first. limit <= 0 lists all.
func (s *RedisStore) List(ctx context.Context, limit int) ([]string, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	ids, err := s.redis.ZRevRange(ctx, indexKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return ids, nil
}
