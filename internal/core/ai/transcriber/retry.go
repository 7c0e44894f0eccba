package transcriber

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/Dev-derah/simple-content-ai/internal/core/retry"
)

// TranscriptionError is returned when every transcription attempt failed.
type TranscriptionError struct {
	Audio    string
	Attempts int
	Err      error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcribe %s failed after %d attempts: %v", filepath.Base(e.Audio), e.Attempts, e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// Retrying wraps a Transcriber with bounded attempts and linear backoff.
type Retrying struct {
	next     Transcriber
	attempts int
	backoff  time.Duration
	timeout  time.Duration
}

// WithRetry wraps t. attempts <= 0 means 3; the delay after attempt n is backoff*n.
// Each attempt runs under timeout when it is positive.
func WithRetry(t Transcriber, attempts int, backoff, timeout time.Duration) *Retrying {
	if attempts <= 0 {
		attempts = 3
	}
	return &Retrying{next: t, attempts: attempts, backoff: backoff, timeout: timeout}
}

func (r *Retrying) Name() string {
	return r.next.Name()
}

func (r *Retrying) Transcribe(ctx context.Context, filePath string) (*Result, error) {
	res, out := retry.Do(ctx, retry.Policy{
		Attempts: r.attempts,
		Backoff:  retry.Linear(r.backoff),
		OnRetry: func(attempt int, err error) {
			log.Printf("[transcribe] %s attempt %d/%d failed: %v", filepath.Base(filePath), attempt, r.attempts, err)
		},
	}, func(ctx context.Context, attempt int) (*Result, error) {
		if r.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}
		return r.next.Transcribe(ctx, filePath)
	})
	if out.Err != nil {
		return nil, &TranscriptionError{Audio: filePath, Attempts: out.Attempts, Err: out.Err}
	}
	return res, nil
}
