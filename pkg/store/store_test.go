package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/forge-miner/pkg/batch"
)

var _ batch.ReportStore = (*RedisStore)(nil)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   14,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func sampleReport(id string, finished time.Time) *batch.Report {
	return &batch.Report{
		RunID:      id,
		StartedAt:  finished.Add(-time.Minute),
		FinishedAt: finished,
		Headers:    []string{"login", "repos"},
		Rows:       [][]string{{"alice", "2"}},
		Invalid:    []string{"ghost"},
		Units: []batch.UnitResult{
			{Identifier: "alice", Position: 0, State: batch.Committed},
			{Identifier: "ghost", Position: 1, State: batch.Rejected},
		},
	}
}

func TestNewRedisStore_Panic(t *testing.T) {
	require.Panics(t, func() { NewRedisStore(nil, time.Hour) })
}

func TestRedisStore_SaveAndLoad(t *testing.T) {
	s := NewRedisStore(setupTestRedis(t), time.Hour)
	ctx := context.Background()

	in := sampleReport("run-1", time.Now())
	require.NoError(t, s.Save(ctx, in))

	out, err := s.Load(ctx, "run-1")
	require.NoError(t, err)
	require.Equal(t, in.Rows, out.Rows)
	require.Equal(t, in.Invalid, out.Invalid)
	require.Equal(t, batch.Rejected, out.Units[1].State)
}

func TestRedisStore_LoadMissing(t *testing.T) {
	s := NewRedisStore(setupTestRedis(t), time.Hour)

	_, err := s.Load(context.Background(), "nope")
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestRedisStore_SaveWithoutID(t *testing.T) {
	s := NewRedisStore(setupTestRedis(t), time.Hour)
	require.Error(t, s.Save(context.Background(), &batch.Report{}))
}

func TestRedisStore_ListNewestFirst(t *testing.T) {
	s := NewRedisStore(setupTestRedis(t), time.Hour)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.Save(ctx, sampleReport("old", now.Add(-2*time.Minute))))
	require.NoError(t, s.Save(ctx, sampleReport("mid", now.Add(-time.Minute))))
	require.NoError(t, s.Save(ctx, sampleReport("new", now)))

	ids, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"new", "mid", "old"}, ids)

	ids, err = s.List(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"new", "mid"}, ids)
}

func TestRedisStore_Delete(t *testing.T) {
	s := NewRedisStore(setupTestRedis(t), time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sampleReport("run-1", time.Now())))
	require.NoError(t, s.Delete(ctx, "run-1"))

	_, err := s.Load(ctx, "run-1")
	require.ErrorIs(t, err, ErrNotFound)

	ids, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, ids)
}
