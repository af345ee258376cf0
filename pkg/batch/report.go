package batch

import (
	"context"
	"time"

	"github.com/Sternrassler/forge-miner/pkg/ratelimit"
)

// Report is the outcome of one batch run.
type Report struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`

	// Invalid lists identifiers and resources the remote API rejected.
	Invalid []string `json:"invalid"`

	// Errors lists pipeline failures, one per failed identifier.
	Errors []*ProcessingError `json:"errors"`

	Units []UnitResult `json:"units"`

	// Cancelled is true when the abort token stopped the run early. The rows
	// are still the final answer.
	Cancelled bool `json:"cancelled"`

	// Summary is the last rate-limit summary seen, nil if none was fetched.
	Summary *ratelimit.Summary `json:"summary,omitempty"`
}

// Count returns how many units ended in state s.
func (r *Report) Count(s UnitState) int {
	n := 0
	for _, u := range r.Units {
		if u.State == s {
			n++
		}
	}
	return n
}

// SummarySource answers the display-only rate-limit status query.
type SummarySource interface {
	Summary(ctx context.Context) (ratelimit.Summary, error)
}

// ReportStore persists finished reports.
type ReportStore interface {
	Save(ctx context.Context, r *Report) error
}
