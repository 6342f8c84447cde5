package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/ormock/internal/dberr"
)

// Sentinels for the two failures the engine itself produces. Every other failure
// a resolution returns came from a handler, the queue, a parent or a fallback and
// is passed through unchanged.
var (
	// ErrEmptyResolution: no strategy produced a value.
	ErrEmptyResolution = dberr.ErrEmptyQueryQueue

	// ErrInvalidQueuedResult: the dequeued outcome had an unknown kind.
	ErrInvalidQueuedResult = dberr.ErrInvalidQueryResult
)

// RejectedValue carries a queued failure whose content is not an error. It only
// shows up when the failure was queued with KeepNonErrors.
type RejectedValue struct {
	Value any
}

// Error implements the error interface.
func (r *RejectedValue) Error() string {
	return fmt.Sprintf("rejected with non-error value: %v", r.Value)
}

func newEmptyResolution() error {
	return dberr.New(dberr.KindEmptyQueryQueue, "")
}

func newPromiseCycle() error {
	return dberr.New(dberr.KindBase, "promise settled with a chain leading back to itself")
}

func newInvalidQueuedResult() error {
	return dberr.New(dberr.KindInvalidQueryResult, "")
}

// IsEmptyResolution returns true if no strategy produced a value for err's resolution.
// Uses errors.Is to handle wrapped errors.
func IsEmptyResolution(err error) bool {
	return errors.Is(err, ErrEmptyResolution)
}

// IsInvalidQueuedResult returns true if err reports a malformed queued outcome.
// Uses errors.Is to handle wrapped errors.
func IsInvalidQueuedResult(err error) bool {
	return errors.Is(err, ErrInvalidQueuedResult)
}

// IsRejectedValue returns true if err carries a non-error failure value.
func IsRejectedValue(err error) bool {
	var rv *RejectedValue
	return errors.As(err, &rv)
}
