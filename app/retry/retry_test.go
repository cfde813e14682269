package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func alwaysRetry(error) Decision {
	return Decision{Retry: true}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	policy := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	calls := 0
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	}, alwaysRetry)

	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	policy := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	calls := 0
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, alwaysRetry)

	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	policy := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	wantErr := errors.New("still failing")
	calls := 0
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return wantErr
	}, alwaysRetry)

	if !errors.Is(err, wantErr) {
		t.Fatalf("Expected last error to be returned, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	policy := Policy{MaxAttempts: 5, BaseDelay: time.Millisecond}

	calls := 0
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("permanent")
	}, func(error) Decision {
		return Decision{Retry: false}
	})

	if err == nil {
		t.Fatal("Expected error")
	}
	if calls != 1 {
		t.Errorf("Expected 1 call for non-retryable error, got %d", calls)
	}
}

func TestDo_ContextCancellationStopsRetries(t *testing.T) {
	policy := Policy{MaxAttempts: 10, BaseDelay: 50 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	errCh := make(chan error, 1)
	go func() {
		errCh <- policy.Do(ctx, func(ctx context.Context) error {
			calls++
			return errors.New("transient")
		}, alwaysRetry)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("Expected error after cancellation")
		}
	case <-time.After(time.Second):
		t.Fatal("Do did not return after context cancellation")
	}

	if calls >= 10 {
		t.Errorf("Expected cancellation to cut retries short, got %d calls", calls)
	}
}

func TestDo_MinDelayOverridesBackoff(t *testing.T) {
	policy := Policy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}

	start := time.Now()
	calls := 0
	_ = policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("rate limited")
	}, func(error) Decision {
		return Decision{Retry: true, MinDelay: 40 * time.Millisecond}
	})

	if calls != 2 {
		t.Fatalf("Expected 2 calls, got %d", calls)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("Expected at least 40ms between attempts, got %v", elapsed)
	}
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	policy := Policy{}

	calls := 0
	_ = policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("boom")
	}, alwaysRetry)

	if calls != 1 {
		t.Errorf("Expected exactly 1 call with zero-value policy, got %d", calls)
	}
}
