//go:build integration

package ratelimit

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestTracker_Integration_SharedSummary(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	writer := NewTracker(redisClient, logger)
	reader := NewTracker(redisClient, logger)
	ctx := context.Background()

	// Empty Redis: unknown summary
	s, err := reader.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if s.Limit != -1 {
		t.Errorf("Limit = %d, want -1 before any update", s.Limit)
	}

	reset := time.Now().Add(20 * time.Minute).Unix()
	headers := http.Header{}
	headers.Set(HeaderLimit, "5000")
	headers.Set(HeaderRemaining, "4100")
	headers.Set(HeaderUsed, "900")
	headers.Set(HeaderReset, strconv.FormatInt(reset, 10))

	if err := writer.UpdateFromHeaders(ctx, headers); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}

	// A second tracker sees the summary through Redis
	s, err = reader.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() after update error = %v", err)
	}

	if s.Limit != 5000 || s.Remaining != 4100 || s.Used != 900 {
		t.Errorf("summary = %+v, want 5000/4100/900", s)
	}
	if s.ResetAt.Unix() != reset {
		t.Errorf("ResetAt = %d, want %d", s.ResetAt.Unix(), reset)
	}
	if s.IsStale(time.Minute) {
		t.Error("freshly written summary should not be stale")
	}
}

// An exhausted summary recorded by one process is what another process sees
// before it spends a request.
func TestTracker_Integration_ExhaustedSummaryShared(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	miner := NewTracker(redisClient, logger)
	viewer := NewTracker(redisClient, logger)

	resetAt := time.Now().Add(90 * time.Second).Truncate(time.Second)
	if err := miner.Record(ctx, Summary{Limit: 5000, Remaining: 0, Used: 5000, ResetAt: resetAt}, "query"); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	s, err := viewer.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if !s.Exhausted() {
		t.Errorf("viewer summary = %+v, want exhausted", s)
	}
	if !s.ResetAt.Equal(resetAt) {
		t.Errorf("ResetAt = %v, want %v", s.ResetAt, resetAt)
	}

	// The recording tracker derives its wait from the same reset time.
	sig := miner.Signal(resetAt.Add(-30 * time.Second))
	if sig.WaitSeconds != 30 {
		t.Errorf("WaitSeconds = %d, want 30", sig.WaitSeconds)
	}
}
