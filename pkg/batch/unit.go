package batch

import (
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/forge-miner/pkg/run"
)

// ErrInvalidIdentifier is returned by a pipeline that rejects its identifier
// before allocating a row.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// ErrPipelinePanic wraps a panic recovered from a pipeline.
var ErrPipelinePanic = errors.New("pipeline panic")

// Unit is one identifier of a batch.
type Unit struct {
	Identifier string

	// Position is the identifier's index in the input.
	Position int

	// Row is the index the unit's first row will get: Position minus the
	// identifiers that produced no row so far.
	Row int
}

// Pipeline processes one identifier: lookups, walks and table patches.
// Returning an error wrapping pagination.ErrNotFound or ErrInvalidIdentifier
// rejects the identifier; such a pipeline must not have appended a row. A
// *pagination.NotFoundError from a walk rejects it too, without a second
// invalid entry.
type Pipeline interface {
	Process(rc *run.Context, u Unit) error
}

// PipelineFunc adapts a plain function to a Pipeline.
type PipelineFunc func(rc *run.Context, u Unit) error

// Process calls f(rc, u).
func (f PipelineFunc) Process(rc *run.Context, u Unit) error { return f(rc, u) }

// UnitState is the lifecycle state of one identifier.
type UnitState int

const (
	Pending UnitState = iota
	Resolving
	Committed
	Rejected
	Failed
)

func (s UnitState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Resolving:
		return "resolving"
	case Committed:
		return "committed"
	case Rejected:
		return "rejected"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("UnitState(%d)", int(s))
	}
}

// MarshalText encodes the state by name.
func (s UnitState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *UnitState) UnmarshalText(b []byte) error {
	for st := Pending; st <= Failed; st++ {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown unit state %q", b)
}

// UnitResult records how one identifier ended.
type UnitResult struct {
	Identifier string        `json:"identifier"`
	Position   int           `json:"position"`
	State      UnitState     `json:"state"`
	Duration   time.Duration `json:"duration"`
}

// ProcessingError is a pipeline failure isolated to one identifier.
type ProcessingError struct {
	Identifier string `json:"identifier"`
	Position   int    `json:"position"`
	Message    string `json:"message"`

	err error
}

func newProcessingError(u Unit, err error) *ProcessingError {
	return &ProcessingError{
		Identifier: u.Identifier,
		Position:   u.Position,
		Message:    err.Error(),
		err:        err,
	}
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("processing %q: %s", e.Identifier, e.Message)
}

// Unwrap returns the pipeline error. It is nil for errors loaded from a store.
func (e *ProcessingError) Unwrap() error {
	return e.err
}
