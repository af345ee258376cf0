// Package run defines the per-run context shared by the collection engine.
// A Context is created when a mining run starts and passed explicitly to
// every component; nothing in the engine keeps run state in globals.
package run

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/forge-miner/pkg/sink"
)

// Backoff waits out a quota signal. countdown.Countdown implements it.
type Backoff interface {
	Wait(ctx context.Context, seconds int) error
}

// BackoffFunc adapts a plain function to a Backoff.
type BackoffFunc func(ctx context.Context, seconds int) error

// Wait calls f(ctx, seconds).
func (f BackoffFunc) Wait(ctx context.Context, seconds int) error { return f(ctx, seconds) }

// NoBackoff returns immediately.
var NoBackoff Backoff = BackoffFunc(func(context.Context, int) error { return nil })

// Policy bounds the wait-and-retry behaviour of a single call site.
type Policy struct {
	// Retries is the number of wait-and-retry rounds after a quota signal.
	Retries int
}

// DefaultPolicy retries once.
func DefaultPolicy() Policy {
	return Policy{Retries: 1}
}

// Context is the state of one mining run.
type Context struct {
	// ID identifies the run in logs and stored reports.
	ID string

	// Abort is owned by the host. The engine only checks it.
	Abort context.Context

	// Table is the run's result table.
	Table *sink.Table

	// Invalid collects identifiers the remote API rejected.
	Invalid *sink.InvalidList

	Backoff Backoff
	Policy  Policy
	Logger  zerolog.Logger

	// StartedAt is when the run was created.
	StartedAt time.Time
}

// New creates a run context with a fresh table and invalid list.
// A nil abort context never aborts; a nil backoff does not wait.
func New(abort context.Context, headers []string, backoff Backoff, logger zerolog.Logger) *Context {
	if abort == nil {
		abort = context.Background()
	}
	if backoff == nil {
		backoff = NoBackoff
	}

	id := uuid.NewString()
	return &Context{
		ID:        id,
		Abort:     abort,
		Table:     sink.NewTable(headers),
		Invalid:   &sink.InvalidList{},
		Backoff:   backoff,
		Policy:    DefaultPolicy(),
		Logger:    logger.With().Str("run_id", id).Logger(),
		StartedAt: time.Now(),
	}
}

// Aborted reports whether the host signalled cancellation.
func (c *Context) Aborted() bool {
	return c.Abort.Err() != nil
}
