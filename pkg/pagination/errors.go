package pagination

import (
	"errors"
	"fmt"

	"github.com/Sternrassler/forge-miner/pkg/ratelimit"
)

// ErrNotFound is returned by a fetch layer when the remote API reports the
// requested identifier does not exist.
var ErrNotFound = errors.New("resource not found")

// NotFoundError is returned by WalkAll when the server reports the walked
// resource as not found. The resource has already been recorded in the run's
// invalid list. It unwraps to the fetch error, so errors.Is(err, ErrNotFound)
// holds.
type NotFoundError struct {
	Resource string
	Err      error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// IsRecordedNotFound reports whether err is or wraps a *NotFoundError, i.e.
// a not-found outcome the walker already put on the invalid list.
func IsRecordedNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// QuotaError reports a quota signal that survived the bounded retry.
type QuotaError struct {
	Signal *ratelimit.QuotaSignal
}

func (e *QuotaError) Error() string {
	if e.Signal == nil {
		return "rate limit exhausted"
	}
	return fmt.Sprintf("rate limit exhausted, retry after %ds", e.Signal.WaitSeconds)
}

// IsQuotaError reports whether err is or wraps a *QuotaError.
func IsQuotaError(err error) bool {
	var qe *QuotaError
	return errors.As(err, &qe)
}
