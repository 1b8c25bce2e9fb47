package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the local store and remote adapters.
var (
	// ErrNotFound marks a missing document or remote resource. Often
	// treated as "empty" by callers, never escalated to a pass failure.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a stale-revision write rejected by the local store.
	ErrConflict = errors.New("revision conflict")
)

// ValidationError marks malformed input shape. Never retried, always
// surfaced to the caller.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// AuthError marks rejected credentials on a remote backend. Not retried.
type AuthError struct {
	Backend string
	Err     error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication rejected by %s: %v", e.Backend, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// TransientError marks a remote failure worth retrying: lock, conflict,
// server error, or lost connectivity. Retried per the shared backoff
// policy, then surfaced if the budget is exhausted.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure in %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// PutResult is the per-document outcome of a bulk write. Conflicts are
// reported as data so the batch can continue.
type PutResult struct {
	ID  string
	Err error
}
