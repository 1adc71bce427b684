package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrForbidden marks a transition the acting role is not allowed to
	// make. Surfaced to the user, never retried.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound marks a reference to an order or product the source of
	// truth does not know.
	ErrNotFound = errors.New("not found")

	// ErrStale marks an update that would rewind an already attained
	// status. Discarded silently, logged only for diagnostics.
	ErrStale = errors.New("stale update")
)

// NetworkError wraps a poll or action request that did not complete. The
// store is left untouched and the next cycle retries independently.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// IsNetwork reports whether err is (or wraps) a NetworkError.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
