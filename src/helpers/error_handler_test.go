package helpers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"product-filter/src/logger"
)

func newTestLogger() *logger.Logger {
	return logger.NewLoggerTo(&bytes.Buffer{}, "DEBUG", "test")
}

func TestRetrySucceedsOnThirdAttempt(t *testing.T) {
	calls := 0
	policy := RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond}

	err := Retry(context.Background(), "fetch", policy, newTestLogger(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Retry returned %v; want nil", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d; want 3", calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	sentinel := errors.New("down")
	policy := RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond}

	err := Retry(context.Background(), "fetch", policy, newTestLogger(), func(ctx context.Context) error {
		calls++
		return sentinel
	})

	if !errors.Is(err, sentinel) {
		t.Errorf("Retry error = %v; want wrapped %v", err, sentinel)
	}
	if calls != 3 {
		t.Errorf("calls = %d; want 3", calls)
	}
}

func TestRetryAttemptDeadlineCountsAsFailure(t *testing.T) {
	var calls int32
	policy := RetryPolicy{MaxAttempts: 2, Delay: time.Millisecond, AttemptTimeout: 20 * time.Millisecond}

	err := Retry(context.Background(), "slow", policy, newTestLogger(), func(ctx context.Context) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Retry returned %v; want nil", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("calls = %d; want 2", got)
	}
}

func TestRetryZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_ = Retry(context.Background(), "once", RetryPolicy{}, nil, func(ctx context.Context) error {
		calls++
		return errors.New("x")
	})
	if calls != 1 {
		t.Errorf("calls = %d; want 1", calls)
	}
}

func TestIsClientError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{NewClientError("empty queries"), true},
		{fmt.Errorf("wrapped: %w", NewClientError("bad")), true},
		{NewConfigurationError("unknown category", nil), true},
		{NewClassifierError("llm down", errors.New("503")), false},
		{errors.New("plain"), false},
	}
	for _, tt := range tests {
		if got := IsClientError(tt.err); got != tt.want {
			t.Errorf("IsClientError(%v) = %v; want %v", tt.err, got, tt.want)
		}
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewDatabaseError("save failed", cause)
	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(%v, cause) = false; want true", err)
	}
	if err.Error() != "save failed: connection refused" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestErrorHandlerBudget(t *testing.T) {
	h := NewErrorHandler(newTestLogger())
	h.MaxErrorsBeforeRestart = 2

	if h.Handle(errors.New("a"), "price update") {
		t.Errorf("budget exhausted after one error")
	}
	if !h.Handle(errors.New("b"), "fetch source") {
		t.Errorf("budget not exhausted after two errors")
	}
	h.Handle(nil, "price update")
	if h.ErrorCount != 1 {
		t.Errorf("ErrorCount = %d; want 1", h.ErrorCount)
	}
}
