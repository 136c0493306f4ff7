package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/skiff-data/skiff-engine/pkg/apperrors"
)

var errTransient = errors.New("connection refused")

func fastPolicy(attempts int, exponential bool) Policy {
	return Policy{
		MaxAttempts:        attempts,
		Delay:              time.Millisecond,
		ExponentialBackoff: exponential,
	}
}

func TestDo_Success(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(3, false), func(ctx context.Context) error {
		calls++
		return nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_SuccessAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(4, false), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})

	if err != nil {
		t.Errorf("expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_ExhaustedBudget(t *testing.T) {
	const attempts = 4

	calls := 0
	err := Do(context.Background(), fastPolicy(attempts, true), func(ctx context.Context) error {
		calls++
		return errTransient
	})

	if calls != attempts {
		t.Errorf("expected exactly %d attempts, got %d", attempts, calls)
	}

	var maxErr *apperrors.MaxAttemptsError
	if !errors.As(err, &maxErr) {
		t.Fatalf("expected MaxAttemptsError, got %v", err)
	}
	if maxErr.Attempts != attempts {
		t.Errorf("expected Attempts=%d, got %d", attempts, maxErr.Attempts)
	}
	if !errors.Is(maxErr, errTransient) {
		t.Error("expected MaxAttemptsError to wrap the last error")
	}
}

func TestDo_PermanentErrorNotRetried(t *testing.T) {
	permanent := errors.New("catalog name collision")

	calls := 0
	err := Do(context.Background(), fastPolicy(5, false), func(ctx context.Context) error {
		calls++
		return permanent
	})

	if calls != 1 {
		t.Errorf("expected 1 call for permanent error, got %d", calls)
	}
	if !errors.Is(err, permanent) {
		t.Errorf("expected original error back, got %v", err)
	}
	var maxErr *apperrors.MaxAttemptsError
	if errors.As(err, &maxErr) {
		t.Error("permanent failure must not be wrapped as MaxAttemptsError")
	}
}

func TestDo_ContextCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	policy := Policy{MaxAttempts: 3, Delay: time.Minute}
	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, policy, func(ctx context.Context) error {
			return errTransient
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Do did not return after context cancellation")
	}
}

func TestDoWithResult_ReturnsValue(t *testing.T) {
	got, err := DoWithResult(context.Background(), fastPolicy(2, false), func(ctx context.Context) (int, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
}

func TestPolicy_DelayFor(t *testing.T) {
	p := Policy{Delay: 100 * time.Millisecond, ExponentialBackoff: true}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := p.delayFor(tt.attempt); got != tt.want {
			t.Errorf("attempt %d: expected %v, got %v", tt.attempt, tt.want, got)
		}
	}

	fixed := Policy{Delay: 100 * time.Millisecond}
	if got := fixed.delayFor(5); got != 100*time.Millisecond {
		t.Errorf("fixed policy: expected 100ms, got %v", got)
	}
}

type declaredRetryable struct{ retryable bool }

func (d declaredRetryable) Error() string     { return "declared" }
func (d declaredRetryable) IsRetryable() bool { return d.retryable }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"timeout", errors.New("i/o timeout"), true},
		{"http 503", errors.New("unexpected status 503"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"too many connections", errors.New("FATAL: too many connections"), true},
		{"auth failure", errors.New("401 unauthorized"), false},
		{"name collision", errors.New("database with name already exists"), false},
		{"declared retryable", declaredRetryable{true}, true},
		{"declared permanent", declaredRetryable{false}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
