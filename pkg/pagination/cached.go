package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/forge-miner/pkg/cache"
)

// PageCache stores fetched pages. cache.Manager implements it.
type PageCache interface {
	Get(ctx context.Context, key cache.Key) (*cache.Entry, error)
	Set(ctx context.Context, key cache.Key, entry *cache.Entry) error
}

// Cached wraps fetch with a page cache. Pages are served from the cache when
// present and stored after a successful fetch; quota signals and errors are
// never cached. Cache failures are logged and fall through to fetch.
// A nil cache returns fetch unchanged.
func Cached[T any](pc PageCache, resource string, ttl time.Duration, fetch FetchFunc[T]) FetchFunc[T] {
	if pc == nil {
		return fetch
	}

	return func(ctx context.Context, req Request) (Result[T], error) {
		key := cache.Key{Resource: resource, Params: req.Params(), Cursor: req.Cursor}

		entry, err := pc.Get(ctx, key)
		switch {
		case err == nil:
			var items []T
			if err := json.Unmarshal(entry.Items, &items); err == nil {
				return Page(items, entry.HasNextPage, entry.EndCursor), nil
			}
			log.Warn().Err(err).Str("key", key.String()).Msg("Discarding undecodable cached page")
		case !errors.Is(err, cache.ErrCacheMiss):
			log.Warn().Err(err).Str("key", key.String()).Msg("Page cache read failed")
		}

		res, err := fetch(ctx, req)
		if err != nil || res.Exhausted() {
			return res, err
		}

		data, err := json.Marshal(res.Items())
		if err != nil {
			log.Warn().Err(err).Str("key", key.String()).Msg("Failed to encode page for cache")
			return res, nil
		}
		if err := pc.Set(ctx, key, cache.NewEntry(data, res.HasNextPage(), res.EndCursor(), ttl)); err != nil {
			log.Warn().Err(err).Str("key", key.String()).Msg("Page cache write failed")
		}

		return res, nil
	}
}
