// Package retry retries recoverable socket operations with exponential
// backoff.  Connect failures sit in the recoverable tier and are handed
// back to the caller; this is the caller-side policy that decides whether
// and when to try again.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	sockerr "gosock/internal/errors"
)

// ── Permanent errors ─────────────────────────────────────────────────

// PermanentError wraps an error to signal that retrying will not help.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks err as non-retryable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err has been marked as permanent.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// ── Backoff ──────────────────────────────────────────────────────────

const (
	defaultInitialDelay = 250 * time.Millisecond
	defaultMaxDelay     = 10 * time.Second
	defaultMultiplier   = 2.0
)

// Backoff retries an operation with exponentially growing waits.
type Backoff struct {
	// InitialDelay is the wait after the first failure (default 250ms).
	InitialDelay time.Duration
	// MaxDelay caps a single wait (default 10s).
	MaxDelay time.Duration
	// Multiplier grows the wait after each failure (default 2.0).
	Multiplier float64
	// MaxAttempts is the total number of tries including the first; 0
	// retries until the context is done.
	MaxAttempts int
	// Jitter spreads each wait by ±25%.
	Jitter bool
	// Retryable decides whether an error is worth another attempt.
	// Nil means errors.IsRetryable.
	Retryable func(error) bool
	// OnRetry, when set, is called before each wait.
	OnRetry func(attempt int, wait time.Duration, err error)
}

// New returns a jittered Backoff allowing retries extra attempts after the
// first one.
func New(retries int, initial, max time.Duration) *Backoff {
	if retries < 0 {
		retries = 0
	}
	return &Backoff{
		InitialDelay: initial,
		MaxDelay:     max,
		Multiplier:   defaultMultiplier,
		MaxAttempts:  retries + 1,
		Jitter:       true,
	}
}

// Do runs fn until it succeeds, fails with a non-retryable or permanent
// error, runs out of attempts, or ctx is done.  attempt is 1-based.
func (b *Backoff) Do(ctx context.Context, fn func(attempt int) error) error {
	delay := b.InitialDelay
	if delay <= 0 {
		delay = defaultInitialDelay
	}
	multiplier := b.Multiplier
	if multiplier <= 1 {
		multiplier = defaultMultiplier
	}
	maxDelay := b.MaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultMaxDelay
	}
	retryable := b.Retryable
	if retryable == nil {
		retryable = sockerr.IsRetryable
	}

	for attempt := 1; ; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			return errors.Unwrap(err)
		}
		if !retryable(err) {
			return err
		}
		if b.MaxAttempts > 0 && attempt >= b.MaxAttempts {
			return fmt.Errorf("gave up after %d attempts: %w", attempt, err)
		}

		wait := delay
		if b.Jitter {
			wait = addJitter(delay)
		}
		if b.OnRetry != nil {
			b.OnRetry(attempt, wait, err)
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-t.C:
		}

		delay = time.Duration(float64(delay) * multiplier)
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

// addJitter adds ±25% randomisation to a duration.
func addJitter(d time.Duration) time.Duration {
	quarter := float64(d) * 0.25
	delta := (rand.Float64() * 2 * quarter) - quarter
	result := float64(d) + delta
	return time.Duration(math.Max(result, float64(time.Millisecond)))
}
