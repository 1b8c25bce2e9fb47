// Package retry is the single backoff policy shared by every remote
// adapter. Historical variants of the retry loop drifted apart; this
// one is canonical: a bounded number of attempts with exponential
// backoff, and a caller-supplied predicate deciding what is worth
// retrying.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff"
)

// Policy bounds one retried operation.
type Policy struct {
	// MaxAttempts is the total number of attempts, first call included.
	MaxAttempts uint64

	// Base scales the backoff curve: the sleep before attempt n+1 is
	// Base × 2^n. With the default base the sequence is 2s, 4s.
	Base time.Duration
}

// Default matches the remote adapters' contract: three attempts,
// one-second base.
var Default = Policy{MaxAttempts: 3, Base: time.Second}

// PermanentError wraps an error that must stop the retry loop even if
// the predicate would otherwise retry it.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks err as non-retryable.
func Permanent(err error) error {
	return &PermanentError{Err: err}
}

// Do runs op until it succeeds, the attempt budget is exhausted, a
// non-retryable error occurs, or ctx is done. The last error is
// returned unwrapped.
func Do(ctx context.Context, p Policy, retryable func(error) bool, op func() error) error {
	if p.MaxAttempts == 0 {
		p.MaxAttempts = Default.MaxAttempts
	}
	if p.Base <= 0 {
		p.Base = Default.Base
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 2 * p.Base
	b.Multiplier = 2
	b.RandomizationFactor = 0
	// Keep the doubling curve uncapped within the attempt budget.
	b.MaxInterval = p.Base << (p.MaxAttempts + 1)
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, p.MaxAttempts-1), ctx)

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		var perm *PermanentError
		if errors.As(err, &perm) {
			return backoff.Permanent(perm.Err)
		}
		if retryable != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}
