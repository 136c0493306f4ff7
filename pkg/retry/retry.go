// Package retry re-issues fallible engine operations under a bounded
// policy. Only transient failures are retried; classification of
// success-equivalent errors (duplicate attach) is the caller's job,
// applied around the executor's result.
package retry

import (
	"context"
	"time"

	"github.com/skiff-data/skiff-engine/pkg/apperrors"
	"github.com/skiff-data/skiff-engine/pkg/engine"
)

// Policy bounds a retried operation. Attempt n (1-based) waits
// Delay*2^(n-1) before re-running when ExponentialBackoff is set,
// otherwise a fixed Delay. Timeout applies per attempt.
type Policy struct {
	MaxAttempts        int
	Timeout            time.Duration
	Delay              time.Duration
	ExponentialBackoff bool

	// Retryable overrides transient classification. Nil means IsTransient.
	Retryable func(error) bool
}

// TestPolicy returns the fail-fast policy used for Test Connection:
// quick feedback beats eventual success.
func TestPolicy() Policy {
	return Policy{
		MaxAttempts: 2,
		Timeout:     5 * time.Second,
		Delay:       500 * time.Millisecond,
	}
}

// AttachPolicy returns the patient policy used for Add/Attach: success
// means durable state, so it favors eventual success over speed.
func AttachPolicy() Policy {
	return Policy{
		MaxAttempts:        5,
		Timeout:            30 * time.Second,
		Delay:              time.Second,
		ExponentialBackoff: true,
	}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.Retryable == nil {
		p.Retryable = IsTransient
	}
	return p
}

func (p Policy) delayFor(attempt int) time.Duration {
	if !p.ExponentialBackoff {
		return p.Delay
	}
	d := p.Delay
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}

// Do executes fn under the policy. It returns nil on the first success,
// the original error for non-transient failures, and
// *apperrors.MaxAttemptsError once transient retries are exhausted.
// Waits respect context cancellation.
func Do(ctx context.Context, policy Policy, fn func(ctx context.Context) error) error {
	_, err := DoWithResult(ctx, policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoWithResult is Do for operations that return a value.
func DoWithResult[T any](ctx context.Context, policy Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p := policy.normalized()

	var zero T
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		attemptCtx := ctx
		cancel := context.CancelFunc(func() {})
		if p.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		}

		result, err := fn(attemptCtx)
		cancel()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !p.Retryable(err) {
			return zero, err
		}

		if attempt < p.MaxAttempts {
			select {
			case <-time.After(p.delayFor(attempt)):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}
	}

	return zero, &apperrors.MaxAttemptsError{Attempts: p.MaxAttempts, LastErr: lastErr}
}

// RetryableError lets an error declare its own retryability, taking
// precedence over pattern matching.
type RetryableError interface {
	error
	IsRetryable() bool
}

// IsTransient reports whether an error looks like a network or timeout
// class failure worth retrying. Permanent failures (bad config, auth,
// duplicate names) must not burn retry budget. The substring lists
// live in the engine classifier; this only adds the RetryableError
// escape hatch on top.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if r, ok := err.(RetryableError); ok {
		return r.IsRetryable()
	}

	return engine.IsTransient(err)
}
