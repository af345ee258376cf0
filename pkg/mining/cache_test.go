package mining

import (
	"context"
	"sync"

	"github.com/Sternrassler/forge-miner/pkg/cache"
)

type memCache struct {
	mu      sync.Mutex
	entries map[string]*cache.Entry
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]*cache.Entry)}
}

func (m *memCache) Get(_ context.Context, key cache.Key) (*cache.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key.String()]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return e, nil
}

func (m *memCache) Set(_ context.Context, key cache.Key, entry *cache.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key.String()] = entry
	return nil
}
