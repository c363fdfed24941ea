package helpers

import (
	"context"
	"errors"
	"fmt"
	"product-filter/src/logger"
	"strings"
	"time"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type ProductFilterError struct {
	Message string
	Cause   error
}

func (e *ProductFilterError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ProductFilterError) Unwrap() error {
	return e.Cause
}

// Distinct error types for errors.As checks at the boundaries
type ConfigurationError struct{ ProductFilterError }
type SourceError struct{ ProductFilterError }
type ClassifierError struct{ ProductFilterError }
type DatabaseError struct{ ProductFilterError }
type ClientError struct{ ProductFilterError }

func NewConfigurationError(msg string, cause error) error {
	return &ConfigurationError{ProductFilterError{Message: msg, Cause: cause}}
}

func NewSourceError(msg string, cause error) error {
	return &SourceError{ProductFilterError{Message: msg, Cause: cause}}
}

func NewClassifierError(msg string, cause error) error {
	return &ClassifierError{ProductFilterError{Message: msg, Cause: cause}}
}

func NewDatabaseError(msg string, cause error) error {
	return &DatabaseError{ProductFilterError{Message: msg, Cause: cause}}
}

func NewClientError(msg string) error {
	return &ClientError{ProductFilterError{Message: msg}}
}

// -----------------------------------------------------------------------------

// IsClientError reports whether err should surface as a 400-class response.
// Configuration errors raised while checking a request count as client errors.
func IsClientError(err error) bool {
	var ce *ClientError
	if errors.As(err, &ce) {
		return true
	}
	var cfg *ConfigurationError
	return errors.As(err, &cfg)
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryPolicy bounds one retried call site.
type RetryPolicy struct {
	MaxAttempts    int
	Delay          time.Duration
	AttemptTimeout time.Duration
	Backoff        bool
}

// DefaultSourcePolicy is used for marketplace fetches: 3 attempts, fixed 2s
// delay, 30s per attempt.
var DefaultSourcePolicy = RetryPolicy{
	MaxAttempts:    3,
	Delay:          2 * time.Second,
	AttemptTimeout: 30 * time.Second,
}

// -----------------------------------------------------------------------------

// Retry runs fn until it succeeds or the policy is exhausted. Every attempt
// gets its own deadline derived from ctx; a deadline hit counts as a failed
// attempt. The returned error wraps the last failure.
func Retry(ctx context.Context, operation string, policy RetryPolicy, log *logger.Logger, fn func(ctx context.Context) error) error {
	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = runAttempt(ctx, policy.AttemptTimeout, fn)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}

		delay := policy.Delay
		if policy.Backoff {
			delay = policy.Delay * (1 << attempt)
		}
		if log != nil {
			log.Warning("Attempt %d/%d failed for %s: %v. Retrying in %v", attempt+1, attempts, operation, lastErr, delay)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s aborted after %d attempts: %w", operation, attempt+1, ctx.Err())
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, attempts, lastErr)
}

// -----------------------------------------------------------------------------

func runAttempt(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(attemptCtx) }()

	select {
	case err := <-done:
		return err
	case <-attemptCtx.Done():
		return fmt.Errorf("attempt deadline exceeded: %w", attemptCtx.Err())
	}
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

type ErrorHandler struct {
	Logger                 *logger.Logger
	ErrorCount             int
	MaxErrorsBeforeRestart int
}

func NewErrorHandler(log *logger.Logger) *ErrorHandler {
	return &ErrorHandler{
		Logger:                 log,
		ErrorCount:             0,
		MaxErrorsBeforeRestart: 10,
	}
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) ResetErrorCount() {
	e.ErrorCount = 0
}

// -----------------------------------------------------------------------------

// Handle logs err under context and tracks it. It returns true once the
// error budget is exhausted.
func (e *ErrorHandler) Handle(err error, context string) bool {
	if err == nil {
		if e.ErrorCount > 0 {
			e.ErrorCount--
		}
		return false
	}

	e.ErrorCount++
	lower := strings.ToLower(context)
	switch {
	case strings.Contains(lower, "fetch") || strings.Contains(lower, "source"):
		e.Logger.Warning("Source error in %s: %v", context, err)
	default:
		e.Logger.Error("Error in %s: %v", context, err)
	}
	return e.ErrorCount >= e.MaxErrorsBeforeRestart
}
