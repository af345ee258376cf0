package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Sternrassler/forge-miner/pkg/cache"
	"github.com/Sternrassler/forge-miner/pkg/github"
	"github.com/Sternrassler/forge-miner/pkg/logging"
	"github.com/Sternrassler/forge-miner/pkg/pagination"
	"github.com/Sternrassler/forge-miner/pkg/ratelimit"
	"github.com/Sternrassler/forge-miner/pkg/store"
)

const redisPingTimeout = 5 * time.Second

// services are the long-lived dependencies of one invocation.
type services struct {
	redis   *redis.Client
	tracker *ratelimit.Tracker
	client  *github.Client
	cache   pagination.PageCache
	store   *store.RedisStore
}

// connectRedis returns nil when no address is configured.
func (a *app) connectRedis(ctx context.Context) (*redis.Client, error) {
	if !a.cfg.RedisEnabled() {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", a.cfg.Redis.Addr, err)
	}

	a.logger.Info().Str("addr", a.cfg.Redis.Addr).Msg("Connected to Redis")
	return rdb, nil
}

// newServices wires the GitHub client and the optional Redis-backed
// components.
func (a *app) newServices(ctx context.Context) (*services, error) {
	if err := a.cfg.RequireToken(); err != nil {
		return nil, err
	}

	rdb, err := a.connectRedis(ctx)
	if err != nil {
		return nil, err
	}

	s := &services{
		redis:   rdb,
		tracker: ratelimit.NewTracker(rdb, logging.NewLogger("ratelimit")),
	}

	gh := github.DefaultConfig(a.cfg.GitHub.Token)
	gh.GraphQLURL = a.cfg.GitHub.URL
	gh.RESTURL = a.cfg.GitHub.RESTURL
	gh.PageSize = a.cfg.GitHub.PageSize
	gh.Timeout = a.cfg.GitHub.Timeout

	s.client, err = github.NewClient(gh, s.tracker)
	if err != nil {
		s.Close()
		return nil, err
	}

	if rdb != nil && a.cfg.Cache.Enabled {
		// Assigned only here: a typed nil *cache.Manager would not read as
		// "no cache" to pagination.Cached.
		s.cache = cache.NewManager(rdb)
	}
	if rdb != nil && a.cfg.Store.Enabled {
		s.store = store.NewRedisStore(rdb, a.cfg.Store.TTL)
	}
	return s, nil
}

// Close releases the Redis connection.
func (s *services) Close() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
}
