package pagination

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Sternrassler/forge-miner/pkg/run"
)

// ErrCursorStalled is returned when the server reports another page but the
// cursor did not advance.
var ErrCursorStalled = errors.New("pagination cursor did not advance")

// WalkAll fetches every page of one resource, starting at req.Cursor, and
// returns all items in page order.
//
// The abort token is checked before every page; once signalled the walk
// stops and returns what it has accumulated, with a nil error. A resource
// the server reports as not found is recorded in the run's invalid list and
// yields no items together with a *NotFoundError, so a caller whose
// identifier lookup is a walk can tell it from an empty first page. A quota
// signal that survives the retry policy is returned as *QuotaError together
// with the partial items.
func WalkAll[T any](rc *run.Context, fetch FetchFunc[T], req Request) ([]T, error) {
	logger := rc.Logger.With().Str("resource", describe(req)).Logger()

	var items []T
	pages := 0
	for {
		if rc.Aborted() {
			walksTotal.WithLabelValues("aborted").Inc()
			logger.Debug().Int("pages", pages).Int("items", len(items)).Msg("Walk aborted")
			return items, nil
		}

		current := req
		res, err := Invoke(rc.Abort, rc.Backoff, rc.Policy, func(ctx context.Context) (Result[T], error) {
			return fetch(ctx, current)
		})
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				walksTotal.WithLabelValues("not_found").Inc()
				resource := describe(req)
				rc.Invalid.Add(resource)
				logger.Warn().Err(err).Msg("Resource not found")
				return nil, &NotFoundError{Resource: resource, Err: err}
			}
			if rc.Aborted() {
				walksTotal.WithLabelValues("aborted").Inc()
				return items, nil
			}
			walksTotal.WithLabelValues("error").Inc()
			return items, err
		}

		if res.Exhausted() {
			walksTotal.WithLabelValues("quota").Inc()
			logger.Warn().Int("wait_seconds", res.Quota().WaitSeconds).Msg("Quota still exhausted after retry")
			return items, &QuotaError{Signal: res.Quota()}
		}

		pages++
		items = append(items, res.Items()...)
		logger.Debug().
			Int("page", pages).
			Int("page_items", len(res.Items())).
			Bool("has_next_page", res.HasNextPage()).
			Msg("Page fetched")

		if !res.HasNextPage() {
			break
		}
		if res.EndCursor() == "" || res.EndCursor() == req.Cursor {
			walksTotal.WithLabelValues("error").Inc()
			return items, fmt.Errorf("%s page %d: %w", describe(req), pages, ErrCursorStalled)
		}
		req = req.WithCursor(res.EndCursor())
	}

	walksTotal.WithLabelValues("complete").Inc()
	return items, nil
}

// FetchOne looks up a single entity through the invoker. An empty result is
// ErrNotFound; a surviving quota signal is *QuotaError.
func FetchOne[T any](rc *run.Context, fetch FetchFunc[T], req Request) (T, error) {
	var zero T
	if err := rc.Abort.Err(); err != nil {
		return zero, err
	}

	res, err := Invoke(rc.Abort, rc.Backoff, rc.Policy, func(ctx context.Context) (Result[T], error) {
		return fetch(ctx, req)
	})
	if err != nil {
		return zero, err
	}
	if res.Exhausted() {
		return zero, &QuotaError{Signal: res.Quota()}
	}

	items := res.Items()
	if len(items) == 0 {
		return zero, fmt.Errorf("%s: %w", describe(req), ErrNotFound)
	}
	return items[0], nil
}

// describe names the resource a request points at, e.g. "octo/hello@main".
func describe(req Request) string {
	var b strings.Builder
	switch {
	case req.Owner != "" && req.Repo != "":
		b.WriteString(req.Owner + "/" + req.Repo)
	case req.Login != "":
		b.WriteString(req.Login)
	case req.Owner != "":
		b.WriteString(req.Owner)
	}
	if req.Branch != "" {
		b.WriteString("@" + req.Branch)
	}
	if req.SHA != "" {
		b.WriteString("#" + req.SHA)
	}
	if req.Kind != "" {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString("(" + req.Kind + ")")
	}
	return b.String()
}
