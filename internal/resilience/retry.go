// Package resilience keeps observation batches moving through flaky AI
// provider calls. Transient failures are retried with growing backoff, and a
// breaker suspends a provider that keeps failing so the fallback takes over
// instead of burning the batch's rate budget.
package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Policy describes how one provider call is retried.
type Policy struct {
	// Attempts is the total number of tries, first call included.
	Attempts int
	// BaseDelay is the wait before the second attempt.
	BaseDelay time.Duration
	// MaxDelay caps the grown delay.
	MaxDelay time.Duration
	// Growth multiplies the delay after each attempt.
	Growth float64
	// Jitter widens each delay by a random fraction in [-Jitter, +Jitter]
	// so parallel workers don't retry in lockstep.
	Jitter float64
	// Retryable overrides IsRetryable when set.
	Retryable func(error) bool
	// OnAttempt runs before each retry sleep with the attempt number that
	// just failed, starting at 1.
	OnAttempt func(attempt int, err error)
}

// DefaultPolicy matches the provider config defaults: three tries, one
// second base delay.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:  3,
		BaseDelay: time.Second,
		MaxDelay:  20 * time.Second,
		Growth:    2.0,
		Jitter:    0.2,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.Attempts <= 0 {
		p.Attempts = d.Attempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = d.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = d.MaxDelay
	}
	if p.Growth <= 0 {
		p.Growth = d.Growth
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.Retryable == nil {
		p.Retryable = IsRetryable
	}
	return p
}

// delayFor computes the sleep before retry number attempt, zero-based.
func (p Policy) delayFor(attempt int) time.Duration {
	d := float64(p.BaseDelay) * math.Pow(p.Growth, float64(attempt))
	if d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * p.Jitter
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// Retry runs fn until it succeeds, the error is permanent, the attempts run
// out, or ctx is done. The last error is returned on failure.
func Retry(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	_, err := RetryVal(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// RetryVal is Retry for calls that produce a value.
func RetryVal[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()

	var zero T
	var lastErr error
	for attempt := 0; attempt < p.Attempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !p.Retryable(err) || attempt == p.Attempts-1 {
			break
		}
		if p.OnAttempt != nil {
			p.OnAttempt(attempt+1, err)
		}

		timer := time.NewTimer(p.delayFor(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}
	return zero, lastErr
}

// LogAttempts returns an OnAttempt hook that records each retry against the
// named provider.
func LogAttempts(provider, operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("provider call retried",
			zap.String("provider", provider),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
