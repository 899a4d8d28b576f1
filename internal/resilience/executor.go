package resilience

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"
	"sync"
	"time"
)

// ErrCircuitOpen is returned immediately when the breaker forbids any
// attempt, without executing the operation or incurring retry delays.
// Callers can use it to distinguish "known bad, do not retry" from an
// operation that failed after retries.
var ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

// RetryConfig configures the retry loop. Immutable after construction.
type RetryConfig struct {
	MaxRetries      int           `yaml:"max_retries"`
	InitialDelay    time.Duration `yaml:"initial_delay"`
	MaxDelay        time.Duration `yaml:"max_delay"`
	ExponentialBase float64       `yaml:"exponential_base"`
	Jitter          bool          `yaml:"jitter"`
}

// DefaultRetryConfig returns the reference retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialDelay:    100 * time.Millisecond,
		MaxDelay:        5 * time.Second,
		ExponentialBase: 2.0,
		Jitter:          true,
	}
}

// Stats counts executor activity.
type Stats struct {
	TotalAttempts    int64
	Successful       int64
	Failed           int64
	RetriesTriggered int64
	LastError        string
	LastErrorTime    time.Time
}

// Operation is one fallible unit of work.
type Operation func(ctx context.Context) error

// Executor runs operations with exponential-backoff retries behind a
// circuit breaker. Safe for concurrent use; the breaker state is the
// shared resource of the instance.
type Executor struct {
	retry   RetryConfig
	breaker *CircuitBreaker

	mu    sync.Mutex
	stats Stats
	rng   *rand.Rand

	sleep func(ctx context.Context, d time.Duration) error // test hook
}

// NewExecutor builds an executor; zero-valued configs fall back to the
// defaults.
func NewExecutor(retry RetryConfig, breaker BreakerConfig) *Executor {
	if retry.MaxRetries <= 0 {
		retry.MaxRetries = 3
	}
	if retry.InitialDelay <= 0 {
		retry.InitialDelay = 100 * time.Millisecond
	}
	if retry.MaxDelay <= 0 {
		retry.MaxDelay = 5 * time.Second
	}
	if retry.ExponentialBase <= 1 {
		retry.ExponentialBase = 2.0
	}
	return &Executor{
		retry:   retry,
		breaker: NewCircuitBreaker(breaker),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:   sleepCtx,
	}
}

// Do executes op with the configured retry policy. The breaker is
// consulted first: an open circuit fails fast with ErrCircuitOpen. On
// exhaustion the last operation error is returned, wrapped. Backoff
// sleeps are context-aware; cancellation between attempts returns the
// context error.
func (e *Executor) Do(ctx context.Context, op Operation) error {
	if !e.breaker.Allow() {
		log.Printf("[resilience] rejecting attempt: circuit open")
		return ErrCircuitOpen
	}

	var lastErr error
	for attempt := 0; attempt < e.retry.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		e.mu.Lock()
		e.stats.TotalAttempts++
		e.mu.Unlock()

		err := op(ctx)
		if err == nil {
			e.breaker.RecordSuccess()
			e.mu.Lock()
			e.stats.Successful++
			e.mu.Unlock()
			if attempt > 0 {
				log.Printf("[resilience] succeeded on attempt %d", attempt+1)
			}
			return nil
		}

		lastErr = err
		e.breaker.RecordFailure()
		e.mu.Lock()
		e.stats.Failed++
		e.stats.LastError = err.Error()
		e.stats.LastErrorTime = time.Now()
		e.mu.Unlock()

		if attempt < e.retry.MaxRetries-1 {
			delay := e.backoff(attempt)
			log.Printf("[resilience] attempt %d failed: %v, retrying in %s", attempt+1, err, delay)
			e.mu.Lock()
			e.stats.RetriesTriggered++
			e.mu.Unlock()
			if err := e.sleep(ctx, delay); err != nil {
				return err
			}
		}
	}

	return fmt.Errorf("resilience: %d attempts exhausted: %w", e.retry.MaxRetries, lastErr)
}

// backoff computes min(initial * base^attempt, max), widened by up to
// +10% uniform jitter when enabled.
func (e *Executor) backoff(attempt int) time.Duration {
	delay := float64(e.retry.InitialDelay) * math.Pow(e.retry.ExponentialBase, float64(attempt))
	if limit := float64(e.retry.MaxDelay); delay > limit {
		delay = limit
	}
	if e.retry.Jitter {
		e.mu.Lock()
		delay += e.rng.Float64() * delay * 0.1
		e.mu.Unlock()
	}
	return time.Duration(delay)
}

// Stats returns a snapshot of the executor counters.
func (e *Executor) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// CircuitState returns the breaker state.
func (e *Executor) CircuitState() State {
	return e.breaker.State()
}

// ResetStats zeroes the counters; breaker state is unaffected.
func (e *Executor) ResetStats() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats = Stats{}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
