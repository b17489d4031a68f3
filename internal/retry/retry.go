// Package retry implements the bounded backoff combinator shared by the
// feed fetcher, cache client, and storage uploader.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Schedule fixes the attempt budget and the waits between attempts.
type Schedule struct {
	MaxAttempts int
	Delays      []time.Duration
}

// DefaultSchedule is the pipeline-wide policy: three attempts with 1s, 2s,
// and 4s waits between them.
func DefaultSchedule() Schedule {
	return Schedule{
		MaxAttempts: 3,
		Delays:      []time.Duration{time.Second, 2 * time.Second, 4 * time.Second},
	}
}

// delay returns the wait after the given zero-based failed attempt,
// clamping to the last entry when attempts outnumber delays.
func (s Schedule) delay(attempt int) time.Duration {
	if len(s.Delays) == 0 {
		return 0
	}
	if attempt >= len(s.Delays) {
		return s.Delays[len(s.Delays)-1]
	}
	return s.Delays[attempt]
}

// Sleeper waits out backoff delays. Tests substitute a recording fake so
// retry timing is observable without real sleeps.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// TimerSleeper sleeps on a real timer, waking early if the context ends.
type TimerSleeper struct{}

// Sleep blocks for d or until ctx is done, whichever comes first.
func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do runs op up to sched.MaxAttempts times, sleeping out the schedule
// between attempts. Context errors are never retried. On exhaustion the
// zero value of T and the last attempt's error are returned; callers wrap
// that error in their own typed failure.
func Do[T any](ctx context.Context, sched Schedule, sleeper Sleeper, logger *zap.Logger, name string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if sched.MaxAttempts < 1 {
		return zero, fmt.Errorf("retry %s: schedule allows no attempts", name)
	}
	if sleeper == nil {
		sleeper = TimerSleeper{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var lastErr error
	for attempt := 1; attempt <= sched.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleeper.Sleep(ctx, sched.delay(attempt-2)); err != nil {
				return zero, errors.Join(err, lastErr)
			}
		}

		out, err := op(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			break
		}
		if attempt < sched.MaxAttempts {
			logger.Warn("operation failed, will retry",
				zap.String("operation", name),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", sched.MaxAttempts),
				zap.Duration("next_delay", sched.delay(attempt-1)),
				zap.Error(err),
			)
		}
	}
	return zero, lastErr
}
