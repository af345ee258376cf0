package pagination

import (
	"context"

	"github.com/Sternrassler/forge-miner/pkg/run"
)

// Backoff waits out a quota signal.
type Backoff = run.Backoff

// Policy bounds the wait-and-retry rounds of one call site.
type Policy = run.Policy

// DefaultPolicy retries once.
func DefaultPolicy() Policy { return run.DefaultPolicy() }

// Invoke calls call and, while the result is a quota signal and retries
// remain, waits the advised seconds through backoff and calls again with the
// same arguments. The last result is returned as-is, even when it is itself
// a quota signal. Fetch errors are returned unmodified; a wait interrupted
// by ctx returns ctx's error.
func Invoke[T any](ctx context.Context, backoff Backoff, policy Policy, call func(context.Context) (Result[T], error)) (Result[T], error) {
	if backoff == nil {
		backoff = run.NoBackoff
	}

	res, err := call(ctx)
	if err != nil {
		return res, err
	}
	observe(res)

	for attempt := 0; attempt < policy.Retries && res.Exhausted(); attempt++ {
		if err := backoff.Wait(ctx, res.Quota().WaitSeconds); err != nil {
			return res, err
		}

		retriesTotal.Inc()
		res, err = call(ctx)
		if err != nil {
			return res, err
		}
		observe(res)
	}

	return res, nil
}

func observe[T any](res Result[T]) {
	if res.Exhausted() {
		quotaSignalsTotal.Inc()
		return
	}
	pagesFetchedTotal.Inc()
}
