// Package retry runs an operation a bounded number of times with a pluggable
// delay between attempts. Every stage that talks to an external tool or service
// goes through Do.
package retry

import (
	"context"
	"errors"
	"time"
)

// Backoff returns the delay to wait after the given failed attempt (1-based).
type Backoff func(attempt int) time.Duration

// Fixed waits the same delay after every attempt.
func Fixed(d time.Duration) Backoff {
	return func(int) time.Duration { return d }
}

// Linear waits base*attempt.
func Linear(base time.Duration) Backoff {
	return func(attempt int) time.Duration { return base * time.Duration(attempt) }
}

// Exponential doubles base after each attempt, capped at max.
func Exponential(base, max time.Duration) Backoff {
	return func(attempt int) time.Duration {
		d := base
		for i := 1; i < attempt; i++ {
			d *= 2
			if max > 0 && d >= max {
				return max
			}
		}
		return d
	}
}

// Policy configures Do.
type Policy struct {
	// Attempts is the total number of tries, including the first. Values below 1 mean 1.
	Attempts int
	Backoff  Backoff
	// OnRetry is called before sleeping after a failed attempt.
	OnRetry func(attempt int, err error)
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Do returns the wrapped error at once.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Outcome describes how many attempts a call to Do made.
type Outcome struct {
	Attempts int
	Err      error
}

// Do calls fn until it succeeds, returns a Permanent error, the context is
// cancelled, or the policy's attempts are exhausted. The last error is returned.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) (T, error)) (T, Outcome) {
	var zero T
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, Outcome{Attempts: attempt - 1, Err: err}
		}

		v, err := fn(ctx, attempt)
		if err == nil {
			return v, Outcome{Attempts: attempt}
		}
		lastErr = err

		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, Outcome{Attempts: attempt, Err: perm.err}
		}
		if attempt == attempts {
			break
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}
		var wait time.Duration
		if p.Backoff != nil {
			wait = p.Backoff(attempt)
		}
		if wait <= 0 {
			continue
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, Outcome{Attempts: attempt, Err: ctx.Err()}
		case <-t.C:
		}
	}
	return zero, Outcome{Attempts: attempts, Err: lastErr}
}
