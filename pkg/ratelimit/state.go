// Package ratelimit models the remote API's rolling request quota.
// It parses the X-RateLimit-* headers returned by the forge API, keeps a
// shared Summary of the quota in Redis for display, and turns an exhausted
// quota into a QuotaSignal the collection engine can back off on.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"time"
)

// Redis keys for quota summary storage.
const (
	RedisKeyLimit      = "forge_miner:rate_limit:limit"
	RedisKeyRemaining  = "forge_miner:rate_limit:remaining"
	RedisKeyUsed       = "forge_miner:rate_limit:used"
	RedisKeyResetAt    = "forge_miner:rate_limit:reset_at"
	RedisKeyLastUpdate = "forge_miner:rate_limit:last_update"
)

// Header names used by the forge API.
const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderUsed       = "X-RateLimit-Used"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderRetryAfter = "Retry-After"
)

// DefaultWaitSeconds is used when a quota error arrives without any usable
// reset information.
const DefaultWaitSeconds = 60

// Summary is the display-only view of the remote quota ({limit, remaining,
// resetAt}). The engine's retry logic never reads it.
type Summary struct {
	// Limit is the total request budget of the current window.
	Limit int `json:"limit"`

	// Remaining is the number of requests left in the current window.
	Remaining int `json:"remaining"`

	// Used is the number of requests spent in the current window.
	Used int `json:"used"`

	// ResetAt is when the window resets.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when this summary was last refreshed.
	LastUpdate time.Time `json:"last_update"`
}

// IsStale returns true if the summary is older than maxAge.
func (s *Summary) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// Exhausted returns true if no requests remain in the current window.
func (s *Summary) Exhausted() bool {
	return s.Limit > 0 && s.Remaining <= 0
}

// TimeUntilReset returns the duration until the window resets.
// Returns 0 if the reset time has already passed.
func (s *Summary) TimeUntilReset() time.Duration {
	d := time.Until(s.ResetAt)
	if d < 0 {
		return 0
	}
	return d
}

// QuotaSignal means no page was fetched because the quota is exhausted;
// retry after WaitSeconds.
type QuotaSignal struct {
	// WaitSeconds is the server-advised wait, without any safety margin.
	WaitSeconds int `json:"wait_seconds"`

	// ResetAt is the advised reset time, zero if unknown.
	ResetAt time.Time `json:"reset_at,omitempty"`
}

// NewQuotaSignal builds a signal that waits until resetAt.
func NewQuotaSignal(resetAt, now time.Time) *QuotaSignal {
	return &QuotaSignal{
		WaitSeconds: secondsUntil(resetAt, now),
		ResetAt:     resetAt,
	}
}

// SignalFromHeaders derives a QuotaSignal from a rate-limited response.
// Retry-After wins over X-RateLimit-Reset; with neither present the signal
// falls back to DefaultWaitSeconds.
func SignalFromHeaders(headers http.Header, now time.Time) *QuotaSignal {
	if v := headers.Get(HeaderRetryAfter); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return &QuotaSignal{
				WaitSeconds: secs,
				ResetAt:     now.Add(time.Duration(secs) * time.Second),
			}
		}
	}

	if v := headers.Get(HeaderReset); v != "" {
		if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
			return NewQuotaSignal(time.Unix(ts, 0), now)
		}
	}

	return &QuotaSignal{
		WaitSeconds: DefaultWaitSeconds,
		ResetAt:     now.Add(DefaultWaitSeconds * time.Second),
	}
}

func secondsUntil(t, now time.Time) int {
	d := t.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
