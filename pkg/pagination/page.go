package pagination

import (
	"context"
	"time"

	"github.com/Sternrassler/forge-miner/pkg/ratelimit"
)

// Request identifies the next page of one resource. It is a value type; a
// walk derives each follow-up request with WithCursor.
type Request struct {
	// Cursor is the opaque resume token. Empty means "from the start".
	Cursor string

	Owner  string
	Repo   string
	Login  string
	Branch string

	// Kind selects a resource variant (e.g. a repository category).
	Kind string

	// Author restricts a commit history to one author (a user node ID).
	Author string

	// SHA names a single commit.
	SHA string

	// Since and Until bound date-ranged resources. Zero means unbounded.
	Since time.Time
	Until time.Time
}

// WithCursor returns a copy of r resuming at cursor.
func (r Request) WithCursor(cursor string) Request {
	r.Cursor = cursor
	return r
}

// Params returns the identifying keys of r, without the cursor.
func (r Request) Params() map[string]string {
	p := map[string]string{
		"owner":  r.Owner,
		"repo":   r.Repo,
		"login":  r.Login,
		"branch": r.Branch,
		"kind":   r.Kind,
	}
	if r.Author != "" {
		p["author"] = r.Author
	}
	if r.SHA != "" {
		p["sha"] = r.SHA
	}
	if !r.Since.IsZero() {
		p["since"] = r.Since.UTC().Format(time.RFC3339)
	}
	if !r.Until.IsZero() {
		p["until"] = r.Until.UTC().Format(time.RFC3339)
	}
	return p
}

// Result is the outcome of one page fetch: a page of items with pagination
// metadata, or a quota signal. Build it with Page or Exhausted.
type Result[T any] struct {
	items       []T
	hasNextPage bool
	endCursor   string
	quota       *ratelimit.QuotaSignal
}

// Page builds a page result. endCursor is only meaningful when hasNextPage
// is true.
func Page[T any](items []T, hasNextPage bool, endCursor string) Result[T] {
	if !hasNextPage {
		endCursor = ""
	}
	return Result[T]{items: items, hasNextPage: hasNextPage, endCursor: endCursor}
}

// Exhausted builds a quota result. A nil signal waits DefaultWaitSeconds.
func Exhausted[T any](signal *ratelimit.QuotaSignal) Result[T] {
	if signal == nil {
		signal = &ratelimit.QuotaSignal{WaitSeconds: ratelimit.DefaultWaitSeconds}
	}
	return Result[T]{quota: signal}
}

// Exhausted reports whether no page was fetched because the quota ran out.
func (r Result[T]) Exhausted() bool { return r.quota != nil }

// Quota returns the quota signal, or nil for a page result.
func (r Result[T]) Quota() *ratelimit.QuotaSignal { return r.quota }

// Items returns the page items.
func (r Result[T]) Items() []T { return r.items }

// HasNextPage reports whether another page follows.
func (r Result[T]) HasNextPage() bool { return r.hasNextPage }

// EndCursor returns the cursor of the next page.
func (r Result[T]) EndCursor() string { return r.endCursor }

// FetchFunc fetches one page of a resource.
type FetchFunc[T any] func(ctx context.Context, req Request) (Result[T], error)
