// Package pagination walks cursor-paginated forge API resources under a
// rolling request quota.
//
// A page-fetch function returns either a page of items or a quota signal,
// never both. Invoke wraps one call: on a quota signal it waits the advised
// time through the run's Backoff and retries a bounded number of times,
// returning the last result as-is. WalkAll drives Invoke from the first page
// until the server reports no further pages, checking the run's abort token
// before every page.
//
// Example usage:
//
//	rc := run.New(ctx, headers, countdown.New(countdown.DefaultConfig(), ui, logger), logger)
//	branches, err := pagination.WalkAll(rc, client.Branches, pagination.Request{
//		Owner: "octo",
//		Repo:  "hello",
//	})
//
// Fetching is strictly serial: one identifier, one resource, one page at a
// time, so a single quota budget stays predictable.
package pagination
