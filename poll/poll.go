// ABOUTME: Cancellable polling task with fixed or exponential backoff and an explicit attempt cap.
// ABOUTME: Replaces ad-hoc re-fetch timers with a loop whose lifetime is bound to a context.
package poll

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// ErrMaxAttempts is returned when the poll function never reported done.
var ErrMaxAttempts = errors.New("poll: maximum attempts reached")

// BackoffConfig controls the delay between attempts.
type BackoffConfig struct {
	InitialDelay time.Duration
	Factor       float64 // 1.0 gives a fixed interval
	MaxDelay     time.Duration
	Jitter       bool
}

// DelayForAttempt returns InitialDelay * Factor^attempt, capped at MaxDelay.
// With Jitter the delay is drawn uniformly from [delay/2, delay].
func (b BackoffConfig) DelayForAttempt(attempt int) time.Duration {
	factor := b.Factor
	if factor <= 0 {
		factor = 1
	}
	delay := float64(b.InitialDelay) * math.Pow(factor, float64(attempt))
	if b.MaxDelay > 0 {
		delay = math.Min(delay, float64(b.MaxDelay))
	}
	if b.Jitter {
		delay = delay/2 + rand.Float64()*delay/2
	}
	return time.Duration(delay)
}

// Policy bounds a polling loop.
type Policy struct {
	MaxAttempts int // 0 means unlimited; the context is then the only bound
	Backoff     BackoffConfig
}

// Fixed polls every interval, at most maxAttempts times.
func Fixed(interval time.Duration, maxAttempts int) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		Backoff:     BackoffConfig{InitialDelay: interval, Factor: 1, MaxDelay: interval},
	}
}

// Exponential doubles the delay from initial up to max, with jitter.
func Exponential(initial, max time.Duration, maxAttempts int) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		Backoff:     BackoffConfig{InitialDelay: initial, Factor: 2, MaxDelay: max, Jitter: true},
	}
}

// Func is one poll attempt. attempt starts at 0. Returning done=true stops
// the loop successfully; a non-nil error stops it with that error.
type Func func(ctx context.Context, attempt int) (done bool, err error)

// Until runs fn immediately, then after each backoff delay, until fn reports
// done, fn fails, attempts run out, or ctx is cancelled.
func Until(ctx context.Context, p Policy, fn Func) error {
	for attempt := 0; p.MaxAttempts <= 0 || attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(p.Backoff.DelayForAttempt(attempt - 1))
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		done, err := fn(ctx, attempt)
		if err != nil {
			return fmt.Errorf("poll attempt %d: %w", attempt, err)
		}
		if done {
			return nil
		}
	}
	return ErrMaxAttempts
}
