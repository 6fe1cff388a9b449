package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"threadscraper/pkg/config"
	errs "threadscraper/pkg/errors"
	"threadscraper/pkg/logger"
)

// recordWaits replaces real sleeping with a log of requested delays
func recordWaits(delays *[]time.Duration) WaitFunc {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return ctx.Err()
	}
}

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   1 * time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1 * time.Second},
		{6, 1 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, backoff.NextDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestExponentialBackoffWithJitter(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.3,
	}

	delays := make(map[time.Duration]bool)
	for i := 0; i < 20; i++ {
		d := backoff.NextDelay(2)
		assert.GreaterOrEqual(t, d, 140*time.Millisecond)
		assert.LessOrEqual(t, d, 260*time.Millisecond)
		delays[d] = true
	}
	assert.Greater(t, len(delays), 1)
}

func TestRetryWithSuccess(t *testing.T) {
	var delays []time.Duration
	attempts := 0
	op := func() error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}

	cfg := &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: 10 * time.Millisecond},
		RetryIf:     func(err error) bool { return true },
		Wait:        recordWaits(&delays),
	}

	require.NoError(t, Do(context.Background(), op, cfg))
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 10 * time.Millisecond}, delays)
}

func TestRetryExhaustedDoesNotWaitAfterLastAttempt(t *testing.T) {
	var delays []time.Duration
	attempts := 0
	op := func() error {
		attempts++
		return errs.New(errs.ErrorTypeRateLimit, 429, "too many requests")
	}

	cfg := NewFetchConfig(config.RetryConfig{
		MaxAttempts:  6,
		BaseDelay:    time.Second,
		MaxDelay:     5 * time.Minute,
		NetworkDelay: 3 * time.Second,
	}, nil)
	cfg.Wait = recordWaits(&delays)

	err := Do(context.Background(), op, cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.True(t, errs.Is(err, errs.ErrorTypeRateLimit))
	assert.Equal(t, 6, attempts)
	assert.Equal(t, []time.Duration{
		1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second,
	}, delays)
}

func TestRetryNetworkErrorsUseFixedDelay(t *testing.T) {
	var delays []time.Duration
	attempts := 0
	op := func() error {
		attempts++
		if attempts == 1 {
			return errs.New(errs.ErrorTypeNetwork, 0, "connection reset")
		}
		if attempts == 2 {
			return errs.New(errs.ErrorTypeForbidden, 403, "forbidden")
		}
		return nil
	}

	cfg := NewFetchConfig(config.RetryConfig{
		MaxAttempts:  6,
		BaseDelay:    time.Second,
		MaxDelay:     time.Minute,
		NetworkDelay: 3 * time.Second,
	}, logger.NewTestLogger())
	cfg.Wait = recordWaits(&delays)

	require.NoError(t, Do(context.Background(), op, cfg))
	assert.Equal(t, []time.Duration{3 * time.Second, 2 * time.Second}, delays)
}

func TestRetryWithNonRetryableError(t *testing.T) {
	tests := []errs.ErrorType{
		errs.ErrorTypeNotFound,
		errs.ErrorTypeServerError,
		errs.ErrorTypeEmptyResponse,
		errs.ErrorTypeParsing,
		errs.ErrorTypeUnknown,
	}

	for _, typ := range tests {
		t.Run(string(typ), func(t *testing.T) {
			attempts := 0
			want := errs.New(typ, 500, "nope")
			cfg := DefaultConfig()
			cfg.Wait = func(context.Context, time.Duration) error {
				t.Fatal("unexpected wait")
				return nil
			}

			err := Do(context.Background(), func() error {
				attempts++
				return want
			}, cfg)
			assert.Same(t, want, err)
			assert.Equal(t, 1, attempts)
		})
	}
}

func TestRetryWithContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	op := func() error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("error")
	}

	cfg := &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: time.Hour},
		RetryIf:     func(err error) bool { return true },
		Wait: func(ctx context.Context, d time.Duration) error {
			return ctx.Err()
		},
	}

	err := Do(ctx, op, cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, attempts)
}

func TestDefaultRetryIf(t *testing.T) {
	assert.False(t, DefaultRetryIf(nil))
	assert.False(t, DefaultRetryIf(context.Canceled))
	assert.True(t, DefaultRetryIf(errors.New("mystery")))
	assert.True(t, DefaultRetryIf(errs.New(errs.ErrorTypeForbidden, 403, "x")))
	assert.False(t, DefaultRetryIf(errs.New(errs.ErrorTypeNotFound, 404, "x")))
}

func TestErrorTypeBackoff(t *testing.T) {
	etb := NewErrorTypeBackoff(config.DefaultConfig().Retry)

	network, ok := etb.GetBackoffForError(errs.ErrorTypeNetwork).(*ConstantBackoff)
	require.True(t, ok)
	assert.Equal(t, 3*time.Second, network.Delay)

	throttle, ok := etb.GetBackoffForError(errs.ErrorTypeRateLimit).(*ExponentialBackoff)
	require.True(t, ok)
	assert.Equal(t, time.Second, throttle.BaseDelay)
	assert.Equal(t, 5*time.Minute, throttle.MaxDelay)
	assert.Zero(t, throttle.JitterFactor)

	assert.Same(t, etb.RateLimitBackoff, etb.GetBackoffForError(errs.ErrorTypeForbidden))
	assert.Same(t, etb.NetworkErrorBackoff, etb.GetBackoffForError(errs.ErrorTypeMalformedBody))
	assert.Equal(t, 4*time.Second, etb.NextDelayFor(3, errs.New(errs.ErrorTypeForbidden, 403, "x")))
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	op := func() (string, error) {
		attempts++
		if attempts < 2 {
			return "", errors.New("temporary error")
		}
		return "success", nil
	}

	cfg := &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     func(err error) bool { return true },
	}

	result, err := DoWithResult(context.Background(), op, cfg)
	require.NoError(t, err)
	assert.Equal(t, "success", result)
	assert.Equal(t, 2, attempts)
}

func TestWait(t *testing.T) {
	require.NoError(t, Wait(context.Background(), 0))
	require.NoError(t, Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
}
