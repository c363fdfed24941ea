package utils

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"product-filter/src/logger"
)

func newTestLogger() *logger.Logger {
	return logger.NewLoggerTo(&bytes.Buffer{}, "DEBUG", "test")
}

// -----------------------------------------------------------------------------

func TestSchedulerRunsOnInterval(t *testing.T) {
	var calls atomic.Int32
	s := NewScheduler("price-update", 10*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, newTestLogger())

	if err := s.Start(context.Background(), true); err != nil {
		t.Fatalf("Start returned %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.Stop()

	if got := calls.Load(); got < 3 {
		t.Fatalf("job ran %d times; want at least 3", got)
	}
	after := calls.Load()
	time.Sleep(30 * time.Millisecond)
	if calls.Load() != after {
		t.Errorf("job kept running after Stop")
	}
	if s.Runs() != int(after) {
		t.Errorf("Runs() = %d; want %d", s.Runs(), after)
	}
}

func TestSchedulerRejectsBadInterval(t *testing.T) {
	s := NewScheduler("bad", 0, func(ctx context.Context) error { return nil }, newTestLogger())
	if err := s.Start(context.Background(), false); err == nil {
		t.Fatal("Start with zero interval returned nil")
	}
}

func TestSchedulerDoubleStart(t *testing.T) {
	s := NewScheduler("twice", time.Hour, func(ctx context.Context) error { return nil }, newTestLogger())
	if err := s.Start(context.Background(), false); err != nil {
		t.Fatalf("first Start returned %v", err)
	}
	defer s.Stop()
	if err := s.Start(context.Background(), false); err == nil {
		t.Error("second Start returned nil")
	}
}

func TestSchedulerSkipsOverlappingRun(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	s := NewScheduler("slow", time.Hour, func(ctx context.Context) error {
		close(entered)
		<-release
		return nil
	}, newTestLogger())

	done := make(chan bool)
	go func() { done <- s.RunOnce(context.Background()) }()
	<-entered

	if s.RunOnce(context.Background()) {
		t.Error("overlapping RunOnce ran the job")
	}
	close(release)
	if !<-done {
		t.Error("first RunOnce reported no run")
	}
}

func TestSchedulerSurvivesJobErrors(t *testing.T) {
	s := NewScheduler("failing", time.Hour, func(ctx context.Context) error {
		return errors.New("store unavailable")
	}, newTestLogger())

	for i := 0; i < 12; i++ {
		if !s.RunOnce(context.Background()) {
			t.Fatalf("run %d skipped", i)
		}
	}
	if s.Runs() != 12 {
		t.Errorf("Runs() = %d; want 12", s.Runs())
	}
}
