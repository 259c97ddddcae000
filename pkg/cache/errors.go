package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by helpers that require a hit when an item is
// not found in cache.
var ErrCacheMiss = errors.New("cache miss")

// RetryableError marks an error as transient. RetryWithBackoff only retries
// errors carrying this marker; everything else fails fast.
type RetryableError struct{ Err error }

// Retryable wraps err as retryable. A nil err stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

func (e *RetryableError) Error() string { return e.Err.Error() }

// Unwrap exposes the wrapped error to errors.Is and errors.As.
func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err carries the RetryableError marker.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// RetryWithBackoff runs fn, retrying retryable failures up to two more
// times with doubling delays starting at one second. Context cancellation
// interrupts the wait.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	const attempts = 3
	delay := time.Second

	var lastErr error
	for i := 0; i < attempts; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		lastErr = err

		if i == attempts-1 {
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
