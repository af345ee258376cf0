package pagination

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/forge-miner/pkg/ratelimit"
	"github.com/Sternrassler/forge-miner/pkg/run"
)

type step[T any] struct {
	res Result[T]
	err error
}

// scripted replays a fixed sequence of fetch outcomes and records every request.
type scripted[T any] struct {
	t      *testing.T
	steps  []step[T]
	calls  []Request
	before func(call int)
}

func (s *scripted[T]) fetch(_ context.Context, req Request) (Result[T], error) {
	s.calls = append(s.calls, req)
	n := len(s.calls)
	if s.before != nil {
		s.before(n)
	}
	if n > len(s.steps) {
		s.t.Fatalf("unexpected fetch call %d with %+v", n, req)
	}
	st := s.steps[n-1]
	return st.res, st.err
}

// recordingBackoff records every wait without sleeping.
type recordingBackoff struct {
	waits []int
	err   error
}

func (b *recordingBackoff) Wait(_ context.Context, seconds int) error {
	b.waits = append(b.waits, seconds)
	return b.err
}

func quota(seconds int) *ratelimit.QuotaSignal {
	return &ratelimit.QuotaSignal{WaitSeconds: seconds}
}

func newRun(t *testing.T, ctx context.Context, backoff run.Backoff) *run.Context {
	t.Helper()
	return run.New(ctx, []string{"col"}, backoff, zerolog.Nop())
}
