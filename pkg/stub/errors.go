package stub

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the engine and its callers.
var (
	// ErrNotFound is returned for get/update/delete/status operations
	// on an id the store does not hold.
	ErrNotFound = errors.New("stub not found")

	// ErrStoreUnavailable is returned when the stub store cannot be
	// reached within its bounded timeout. Transient; callers may retry
	// with backoff. A matching decision is never guessed.
	ErrStoreUnavailable = errors.New("stub store unavailable")

	// ErrWriteTimeout is returned when a write could not complete
	// within its bounded timeout. Transient; callers may retry.
	ErrWriteTimeout = errors.New("stub write timed out")
)

// ValidationError reports a malformed stub field. Rejected before the
// write reaches the store.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
}

// PriorityConflictError reports a write whose priority duplicates or
// falls below the destination's current maximum among non-archived
// stubs. MaxPriority carries the offending maximum so the caller can
// pick a higher value.
type PriorityConflictError struct {
	Destination Destination
	Priority    int
	MaxPriority int
}

func (e *PriorityConflictError) Error() string {
	return fmt.Sprintf("priority %d conflicts at destination %s: current maximum is %d",
		e.Priority, e.Destination.Key(), e.MaxPriority)
}

// IsPriorityConflict reports whether err is a PriorityConflictError
// and returns it when so.
func IsPriorityConflict(err error) (*PriorityConflictError, bool) {
	var pc *PriorityConflictError
	if errors.As(err, &pc) {
		return pc, true
	}
	return nil, false
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
