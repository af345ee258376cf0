// Package cache stores fetched pages of forge API resources in Redis.
//
// A page is keyed by its resource name, the identifying parameters of the
// request and the cursor it was fetched from, so a re-run of a cancelled
// batch can walk the same resources again without spending request quota.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.Key{
//		Resource: "branches",
//		Params:   map[string]string{"owner": "octo", "repo": "hello"},
//		Cursor:   "Y3Vyc29yOjE=",
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the API, then manager.Set(ctx, key, entry)
//	}
//
// Only successful pages are cached. Quota signals and errors never are.
//
// # Metrics
//
//   - forge_miner_page_cache_lookups_total{resource,result} - hit, miss, expired, invalid
//   - forge_miner_page_cache_bytes_total{resource,direction} - Bytes read and written
//   - forge_miner_page_cache_purged_total - Pages removed by Purge
//   - forge_miner_page_cache_errors_total{operation} - Redis errors
package cache
