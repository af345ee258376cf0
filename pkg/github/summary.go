package github

import (
	"context"
	"fmt"

	"github.com/shurcooL/githubv4"

	"github.com/Sternrassler/forge-miner/pkg/ratelimit"
)

// Summary queries the current GraphQL quota and records it in the tracker.
func (c *Client) Summary(ctx context.Context) (ratelimit.Summary, error) {
	var q struct {
		RateLimit struct {
			Limit     int
			Remaining int
			Used      int
			ResetAt   githubv4.DateTime
		}
	}
	if err := c.gql.Query(ctx, &q, nil); err != nil {
		return ratelimit.Summary{}, &APIError{Resource: "rate limit", Message: "query failed", Err: err}
	}

	s := ratelimit.Summary{
		Limit:      q.RateLimit.Limit,
		Remaining:  q.RateLimit.Remaining,
		Used:       q.RateLimit.Used,
		ResetAt:    q.RateLimit.ResetAt.Time,
		LastUpdate: c.now(),
	}
	if c.tracker != nil {
		if err := c.tracker.Record(ctx, s, "query"); err != nil {
			return s, fmt.Errorf("record quota summary: %w", err)
		}
	}
	return s, nil
}
