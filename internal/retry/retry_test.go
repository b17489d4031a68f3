package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingSleeper captures requested delays instead of sleeping.
type recordingSleeper struct {
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func TestDoReturnsFirstSuccessWithoutSleeping(t *testing.T) {
	t.Parallel()

	sleeper := &recordingSleeper{}
	got, err := Do(context.Background(), DefaultSchedule(), sleeper, zap.NewNop(), "op",
		func(context.Context) (int, error) { return 42, nil })

	require.NoError(t, err)
	require.Equal(t, 42, got)
	require.Empty(t, sleeper.delays)
}

func TestDoWaitsOutScheduleBetweenAttempts(t *testing.T) {
	t.Parallel()

	sleeper := &recordingSleeper{}
	calls := 0
	got, err := Do(context.Background(), DefaultSchedule(), sleeper, zap.NewNop(), "op",
		func(context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", errors.New("transient")
			}
			return "ok", nil
		})

	require.NoError(t, err)
	require.Equal(t, "ok", got)
	require.Equal(t, 3, calls)
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeper.delays)

	var waited time.Duration
	for _, d := range sleeper.delays {
		waited += d
	}
	require.GreaterOrEqual(t, waited, 3*time.Second)
}

func TestDoExhaustionReturnsLastError(t *testing.T) {
	t.Parallel()

	sleeper := &recordingSleeper{}
	calls := 0
	lastErr := errors.New("attempt 3")
	_, err := Do(context.Background(), DefaultSchedule(), sleeper, zap.NewNop(), "op",
		func(context.Context) (int, error) {
			calls++
			if calls == 3 {
				return 0, lastErr
			}
			return 0, errors.New("earlier")
		})

	require.ErrorIs(t, err, lastErr)
	require.Equal(t, 3, calls)
	require.Len(t, sleeper.delays, 2)
}

func TestDoDoesNotRetryContextErrors(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := Do(context.Background(), DefaultSchedule(), &recordingSleeper{}, zap.NewNop(), "op",
		func(context.Context) (int, error) {
			calls++
			return 0, context.Canceled
		})

	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}

func TestDoStopsWhenSleepIsInterrupted(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Do(ctx, DefaultSchedule(), TimerSleeper{}, zap.NewNop(), "op",
		func(context.Context) (int, error) {
			calls++
			return 0, errors.New("transient")
		})

	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}

func TestScheduleClampsToLastDelay(t *testing.T) {
	t.Parallel()

	sched := Schedule{MaxAttempts: 5, Delays: []time.Duration{time.Second, 2 * time.Second}}
	sleeper := &recordingSleeper{}
	_, err := Do(context.Background(), sched, sleeper, zap.NewNop(), "op",
		func(context.Context) (int, error) { return 0, errors.New("always") })

	require.Error(t, err)
	require.Equal(t, []time.Duration{
		time.Second, 2 * time.Second, 2 * time.Second, 2 * time.Second,
	}, sleeper.delays)
}
