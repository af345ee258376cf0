package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss is returned by Get when no fresh page is stored.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry is returned by Get when a stored page cannot be decoded.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// purgeBatch is the SCAN page size and the number of keys unlinked at once.
const purgeBatch = 100

// Manager is a Redis-backed page cache. It implements pagination.PageCache.
type Manager struct {
	redis *redis.Client
	now   func() time.Time
}

// NewManager creates a page cache on redisClient.
func NewManager(redisClient *redis.Client) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Manager{redis: redisClient, now: time.Now}
}

// Get returns the page stored under key. Missing and stale pages yield
// ErrCacheMiss; a stale page is removed.
func (m *Manager) Get(ctx context.Context, key Key) (*Entry, error) {
	data, err := m.redis.Get(ctx, key.String()).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		lookups.WithLabelValues(key.Resource, resultMiss).Inc()
		return nil, ErrCacheMiss
	case err != nil:
		opErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		lookups.WithLabelValues(key.Resource, resultInvalid).Inc()
		return nil, fmt.Errorf("%s: %w: %v", key, ErrInvalidEntry, err)
	}

	// Redis expiry normally removes stale pages first. This covers clock
	// skew between writers and entries written without a TTL.
	if entry.ExpiredAt(m.now()) {
		_ = m.Delete(ctx, key)
		lookups.WithLabelValues(key.Resource, resultExpired).Inc()
		return nil, ErrCacheMiss
	}

	lookups.WithLabelValues(key.Resource, resultHit).Inc()
	bytesMoved.WithLabelValues(key.Resource, "read").Add(float64(len(data)))
	return &entry, nil
}

// Set stores a page until entry.Expires. Entries that are already stale are
// dropped silently.
func (m *Manager) Set(ctx context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.TTLAt(m.now())
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	if err := m.redis.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		opErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	bytesMoved.WithLabelValues(key.Resource, "write").Add(float64(len(data)))
	return nil
}

// Delete removes one page.
func (m *Manager) Delete(ctx context.Context, key Key) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		opErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Purge removes every cached page of resource, or the whole page cache when
// resource is empty, and returns the number of pages removed.
func (m *Manager) Purge(ctx context.Context, resource string) (int, error) {
	pattern := Key{Resource: resource}.Pattern()

	removed := 0
	unlink := func(keys []string) error {
		if len(keys) == 0 {
			return nil
		}
		n, err := m.redis.Unlink(ctx, keys...).Result()
		removed += int(n)
		purged.Add(float64(n))
		return err
	}

	var batch []string
	iter := m.redis.Scan(ctx, 0, pattern, purgeBatch).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == purgeBatch {
			if err := unlink(batch); err != nil {
				opErrors.WithLabelValues("purge").Inc()
				return removed, fmt.Errorf("redis unlink: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		opErrors.WithLabelValues("purge").Inc()
		return removed, fmt.Errorf("redis scan %s: %w", pattern, err)
	}
	if err := unlink(batch); err != nil {
		opErrors.WithLabelValues("purge").Inc()
		return removed, fmt.Errorf("redis unlink: %w", err)
	}
	return removed, nil
}
