package utils

import (
	"context"
	"fmt"
	"sync"
	"time"

	"product-filter/src/helpers"
	"product-filter/src/logger"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Scheduler runs a job at a fixed interval. A tick that arrives while the
// previous run is still going is skipped.
type Scheduler struct {
	Name     string
	Interval time.Duration
	Logger   *logger.Logger

	job     Job
	errors  *helpers.ErrorHandler
	running sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	runs   int
}

// -----------------------------------------------------------------------------

func NewScheduler(name string, interval time.Duration, job Job, l *logger.Logger) *Scheduler {
	return &Scheduler{
		Name:     name,
		Interval: interval,
		Logger:   l,
		job:      job,
		errors:   helpers.NewErrorHandler(l),
	}
}

// -----------------------------------------------------------------------------

// Start launches the loop in its own goroutine. When runNow is set the job
// also runs once immediately.
func (s *Scheduler) Start(ctx context.Context, runNow bool) error {
	if s.Interval <= 0 {
		return helpers.NewConfigurationError(fmt.Sprintf("scheduler %s: interval must be positive", s.Name), nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return fmt.Errorf("scheduler %s already started", s.Name)
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.loop(ctx, runNow)
	s.Logger.Info("Scheduler %s: every %s", s.Name, s.Interval)
	return nil
}

// Stop cancels the loop and waits for an in-flight run to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.Logger.Info("Scheduler %s stopped", s.Name)
}

// Runs reports how many times the job has run.
func (s *Scheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

// -----------------------------------------------------------------------------

func (s *Scheduler) loop(ctx context.Context, runNow bool) {
	defer close(s.done)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	if runNow {
		s.RunOnce(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce runs the job unless a run is already in progress. It reports
// whether the job ran.
func (s *Scheduler) RunOnce(ctx context.Context) bool {
	if !s.running.TryLock() {
		s.Logger.Warning("Scheduler %s: previous run still in progress, skipping", s.Name)
		return false
	}
	defer s.running.Unlock()

	start := time.Now()
	err := s.job(ctx)

	s.mu.Lock()
	s.runs++
	s.mu.Unlock()

	if s.errors.Handle(err, s.Name) {
		s.Logger.Error("Scheduler %s: %d failed runs without recovery", s.Name, s.errors.ErrorCount)
		s.errors.ResetErrorCount()
	}
	if err == nil {
		s.Logger.Debug("Scheduler %s: run finished in %s", s.Name, time.Since(start).Round(time.Millisecond))
	}
	return true
}
