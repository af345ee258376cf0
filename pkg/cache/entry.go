package cache

import (
	"encoding/json"
	"time"
)

// Entry is one cached page: its items as the fetcher returned them plus the
// page info needed to continue the walk.
type Entry struct {
	Items       json.RawMessage `json:"items"`
	HasNextPage bool            `json:"has_next_page"`
	EndCursor   string          `json:"end_cursor,omitempty"`

	CachedAt time.Time `json:"cached_at"`
	Expires  time.Time `json:"expires"`
}

// NewEntry builds an entry for a page that expires ttl from now.
func NewEntry(items json.RawMessage, hasNextPage bool, endCursor string, ttl time.Duration) *Entry {
	now := time.Now()
	return &Entry{
		Items:       items,
		HasNextPage: hasNextPage,
		EndCursor:   endCursor,
		CachedAt:    now,
		Expires:     now.Add(ttl),
	}
}

// ExpiredAt reports whether the entry is stale at t.
func (e *Entry) ExpiredAt(t time.Time) bool {
	return !t.Before(e.Expires)
}

// TTLAt returns how long the entry stays fresh after t, never negative.
func (e *Entry) TTLAt(t time.Time) time.Duration {
	if ttl := e.Expires.Sub(t); ttl > 0 {
		return ttl
	}
	return 0
}
