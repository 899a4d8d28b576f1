package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestBreaker(cfg BreakerConfig, clock *fakeClock) *CircuitBreaker {
	b := NewCircuitBreaker(cfg)
	b.now = clock.now
	b.lastStateChange = clock.now()
	return b
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	b := newTestBreaker(BreakerConfig{FailureThreshold: 3, RecoveryTimeout: time.Minute}, clock)

	for i := 0; i < 3; i++ {
		require.True(t, b.Allow())
		b.RecordFailure()
	}

	require.Equal(t, Open, b.State())
	require.False(t, b.Allow(), "open breaker must reject immediately")
}

func TestBreakerHalfOpenAfterRecoveryTimeout(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	b := newTestBreaker(BreakerConfig{FailureThreshold: 1, RecoveryTimeout: 30 * time.Second}, clock)

	b.RecordFailure()
	require.Equal(t, Open, b.State())
	require.False(t, b.Allow())

	clock.advance(31 * time.Second)
	require.True(t, b.Allow())
	require.Equal(t, HalfOpen, b.State())

	b.RecordSuccess()
	require.Equal(t, Closed, b.State())
}

func TestBreakerHalfOpenProbeCap(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	b := newTestBreaker(BreakerConfig{
		FailureThreshold:    5,
		RecoveryTimeout:     time.Second,
		HalfOpenMaxRequests: 2,
	}, clock)

	for i := 0; i < 5; i++ {
		b.RecordFailure()
	}
	clock.advance(2 * time.Second)

	require.True(t, b.Allow()) // transition probe
	require.True(t, b.Allow()) // second probe slot
	require.False(t, b.Allow(), "probe cap exceeded")

	// Settling one probe frees a slot.
	b.RecordFailure()
	require.True(t, b.Allow())
}

func TestBreakerReopensFromHalfOpen(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	b := newTestBreaker(BreakerConfig{FailureThreshold: 1, RecoveryTimeout: time.Second}, clock)

	b.RecordFailure()
	clock.advance(2 * time.Second)
	require.True(t, b.Allow())
	require.Equal(t, HalfOpen, b.State())

	b.RecordFailure()
	require.Equal(t, Open, b.State())
}

func newTestExecutor(retry RetryConfig, breaker BreakerConfig) (*Executor, *[]time.Duration) {
	e := NewExecutor(retry, breaker)
	delays := &[]time.Duration{}
	e.sleep = func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
	return e, delays
}

func TestExecutorRetriesUntilSuccess(t *testing.T) {
	e, delays := newTestExecutor(RetryConfig{MaxRetries: 3, InitialDelay: 10 * time.Millisecond, MaxDelay: time.Second, ExponentialBase: 2}, BreakerConfig{FailureThreshold: 10})

	calls := 0
	err := e.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 3, calls)
	require.Len(t, *delays, 2)

	stats := e.Stats()
	require.Equal(t, int64(3), stats.TotalAttempts)
	require.Equal(t, int64(1), stats.Successful)
	require.Equal(t, int64(2), stats.Failed)
	require.Equal(t, int64(2), stats.RetriesTriggered)
}

func TestExecutorExhaustionReturnsLastError(t *testing.T) {
	e, _ := newTestExecutor(RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Second, ExponentialBase: 2}, BreakerConfig{FailureThreshold: 10})

	sentinel := errors.New("send failed")
	err := e.Do(context.Background(), func(context.Context) error { return sentinel })

	require.Error(t, err)
	require.ErrorIs(t, err, sentinel)
	require.Equal(t, "send failed", e.Stats().LastError)
}

func TestExecutorBackoffBounds(t *testing.T) {
	e, delays := newTestExecutor(RetryConfig{
		MaxRetries:      5,
		InitialDelay:    100 * time.Millisecond,
		MaxDelay:        300 * time.Millisecond,
		ExponentialBase: 2,
	}, BreakerConfig{FailureThreshold: 100})

	_ = e.Do(context.Background(), func(context.Context) error { return errors.New("x") })

	require.Len(t, *delays, 4)
	require.Equal(t, 100*time.Millisecond, (*delays)[0])
	require.Equal(t, 200*time.Millisecond, (*delays)[1])
	for _, d := range *delays {
		require.LessOrEqual(t, d, 300*time.Millisecond)
	}
}

func TestExecutorJitterWithinTenPercent(t *testing.T) {
	e, delays := newTestExecutor(RetryConfig{
		MaxRetries:      2,
		InitialDelay:    100 * time.Millisecond,
		MaxDelay:        time.Second,
		ExponentialBase: 2,
		Jitter:          true,
	}, BreakerConfig{FailureThreshold: 100})

	_ = e.Do(context.Background(), func(context.Context) error { return errors.New("x") })

	require.Len(t, *delays, 1)
	d := (*delays)[0]
	require.GreaterOrEqual(t, d, 100*time.Millisecond)
	require.LessOrEqual(t, d, 110*time.Millisecond)
}

func TestExecutorCircuitOpenFailsFast(t *testing.T) {
	e, _ := newTestExecutor(RetryConfig{MaxRetries: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, ExponentialBase: 2}, BreakerConfig{FailureThreshold: 1, RecoveryTimeout: time.Hour})

	_ = e.Do(context.Background(), func(context.Context) error { return errors.New("x") })
	require.Equal(t, Open, e.CircuitState())

	calls := 0
	err := e.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	require.ErrorIs(t, err, ErrCircuitOpen)
	require.Equal(t, 0, calls, "operation must not run while the circuit is open")
}

func TestExecutorContextCancelled(t *testing.T) {
	e := NewExecutor(RetryConfig{MaxRetries: 5, InitialDelay: 10 * time.Second, MaxDelay: time.Minute, ExponentialBase: 2}, BreakerConfig{FailureThreshold: 100})

	ctx, cancel := context.WithCancel(context.Background())
	err := e.Do(ctx, func(context.Context) error {
		cancel()
		return errors.New("x")
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestExecutorConcurrentCallers(t *testing.T) {
	e, _ := newTestExecutor(RetryConfig{MaxRetries: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, ExponentialBase: 2}, BreakerConfig{FailureThreshold: 1000})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				op := func(context.Context) error { return nil }
				if j%5 == 0 {
					op = func(context.Context) error { return errors.New("x") }
				}
				_ = e.Do(context.Background(), op)
			}
		}(i)
	}
	wg.Wait()

	stats := e.Stats()
	require.Equal(t, int64(200), stats.TotalAttempts)
	require.Equal(t, int64(160), stats.Successful)
	require.Equal(t, int64(40), stats.Failed)
}
