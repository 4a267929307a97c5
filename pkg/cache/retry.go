package cache

import (
	"context"
	"errors"
	"time"
)

// RetryableError marks an error as transient: the index fetch that
// produced it may succeed on another attempt. Anything unwrapped is
// treated as permanent and fails immediately.
type RetryableError struct{ Err error }

// Retryable wraps an error as transient. A nil error stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

func (e *RetryableError) Error() string { return e.Err.Error() }

func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err carries a RetryableError anywhere in
// its chain.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// RetryWithBackoff runs fn, retrying transient failures with doubling
// delays. Index rate limits and 5xx responses come back as retryable;
// a 404 does not, so a package genuinely missing from the index fails
// fast.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	const maxAttempts = 3
	delay := time.Second

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		lastErr = err

		if attempt == maxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay *= 2
		}
	}
	return lastErr
}
