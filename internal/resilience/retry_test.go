package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts int) Policy {
	return Policy{Attempts: attempts, Initial: time.Millisecond, Max: 5 * time.Millisecond, Multiplier: 2}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	var calls int
	err := Retry(context.Background(), fastPolicy(3), func(context.Context) error {
		calls++
		if calls < 3 {
			return Transient(errors.New("busy"), 503)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	var calls int
	err := Retry(context.Background(), fastPolicy(4), func(context.Context) error {
		calls++
		return Transient(errors.New("down"), 502)
	})
	require.Error(t, err)
	assert.Equal(t, 4, calls)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	var calls int
	err := Retry(context.Background(), fastPolicy(3), func(context.Context) error {
		calls++
		return errors.New("http 400: unknown variable")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	err := Retry(ctx, Policy{Attempts: 5, Initial: time.Hour}, func(context.Context) error {
		calls++
		cancel()
		return Transient(errors.New("busy"), 503)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryValueAndCallbacks(t *testing.T) {
	var retried []int
	p := fastPolicy(3)
	p.OnRetry = func(attempt int, _ error) { retried = append(retried, attempt) }
	p.Retryable = func(error) bool { return true }

	var calls int
	v, err := RetryValue(context.Background(), p, func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("anything")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, []int{1}, retried)
}

func TestPolicyDelay(t *testing.T) {
	p := Policy{Initial: 100 * time.Millisecond, Max: time.Second, Multiplier: 2}.normalized()
	assert.Equal(t, 100*time.Millisecond, p.delay(0))
	assert.Equal(t, 400*time.Millisecond, p.delay(2))
	assert.Equal(t, time.Second, p.delay(10))

	p.Jitter = 0.5
	for range 50 {
		d := p.delay(1)
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.LessOrEqual(t, d, 300*time.Millisecond)
	}
}

func TestWithAttempts(t *testing.T) {
	assert.Equal(t, 5, DefaultPolicy().WithAttempts(5).Attempts)
	assert.Equal(t, 3, DefaultPolicy().WithAttempts(0).Attempts)
}
