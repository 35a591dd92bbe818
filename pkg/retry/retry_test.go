package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetrier(maxRetries int) (*Retrier, *[]time.Duration) {
	r := New(&Config{
		MaxRetries:      maxRetries,
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     40 * time.Millisecond,
		Multiplier:      2,
	})
	var waits []time.Duration
	r.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	return r, &waits
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.InitialInterval)
	assert.Equal(t, 2.0, cfg.Multiplier)
	assert.Zero(t, cfg.JitterFactor)
}

func TestNew_FillsZeroValues(t *testing.T) {
	r := New(&Config{MaxRetries: -3, JitterFactor: 4})
	assert.Equal(t, 0, r.config.MaxRetries)
	assert.Equal(t, time.Second, r.config.InitialInterval)
	assert.Equal(t, 30*time.Second, r.config.MaxInterval)
	assert.Equal(t, 1.0, r.config.JitterFactor)
}

func TestRetrier_SucceedsFirstTry(t *testing.T) {
	r, waits := fastRetrier(2)
	res := r.Do(context.Background(), func(ctx context.Context) error { return nil }, nil)

	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.Attempts)
	assert.Empty(t, *waits)
}

func TestRetrier_RetriesThenSucceeds(t *testing.T) {
	r, waits := fastRetrier(2)
	calls := 0
	res := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	}, nil)

	require.NoError(t, res.Err)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, *waits)
}

func TestRetrier_ExhaustsBudget(t *testing.T) {
	r, _ := fastRetrier(2)
	boom := errors.New("boom")
	var seen []int
	res := r.Do(context.Background(), func(ctx context.Context) error { return boom }, func(attempt int, err error, wait time.Duration) {
		seen = append(seen, attempt)
	})

	assert.ErrorIs(t, res.Err, ErrMaxRetriesExceeded)
	assert.ErrorIs(t, res.LastError, boom)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, []int{1, 2}, seen)
}

func TestRetrier_PermanentStopsImmediately(t *testing.T) {
	r, waits := fastRetrier(5)
	notFound := errors.New("404")
	res := r.Do(context.Background(), func(ctx context.Context) error { return Permanent(notFound) }, nil)

	assert.Equal(t, notFound, res.Err)
	assert.Equal(t, 1, res.Attempts)
	assert.Empty(t, *waits)
}

func TestRetrier_ContextCanceled(t *testing.T) {
	r, _ := fastRetrier(5)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	res := r.Do(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("fail")
	}, nil)

	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestInterval_Capped(t *testing.T) {
	r, _ := fastRetrier(10)
	assert.Equal(t, 40*time.Millisecond, r.interval(5))
}

func TestDo_JoinsLastError(t *testing.T) {
	boom := errors.New("boom")
	err := Do(context.Background(), &Config{MaxRetries: 0}, func(ctx context.Context) error { return boom })

	assert.ErrorIs(t, err, ErrMaxRetriesExceeded)
	assert.ErrorIs(t, err, boom)
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, IsPermanent(Permanent(errors.New("x"))))
	assert.False(t, IsPermanent(errors.New("x")))
	assert.Nil(t, Permanent(nil))
}
