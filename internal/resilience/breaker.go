// Package resilience provides a retry executor guarded by a circuit
// breaker for operations over unreliable transports.
package resilience

import (
	"log"
	"sync"
	"time"
)

// State is the circuit breaker state.
type State int

const (
	Closed State = iota // normal operation
	Open                // rejecting attempts until the recovery timeout
	HalfOpen            // admitting a bounded number of probes
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	default:
		return "half_open"
	}
}

// BreakerConfig configures a CircuitBreaker. Immutable after
// construction.
type BreakerConfig struct {
	FailureThreshold    int           `yaml:"failure_threshold"`
	RecoveryTimeout     time.Duration `yaml:"recovery_timeout"`
	HalfOpenMaxRequests int           `yaml:"half_open_max_requests"`
}

// DefaultBreakerConfig mirrors the defaults of the wire protocol's
// reference configuration.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold:    5,
		RecoveryTimeout:     30 * time.Second,
		HalfOpenMaxRequests: 1,
	}
}

// CircuitBreaker is a Closed/Open/HalfOpen failure isolator. All state
// transitions are mutex guarded, so one instance may be shared by
// concurrent callers.
type CircuitBreaker struct {
	mu sync.Mutex

	cfg             BreakerConfig
	state           State
	failureCount    int
	halfOpenInUse   int
	lastFailure     time.Time
	lastStateChange time.Time

	now func() time.Time // test hook
}

// NewCircuitBreaker builds a closed breaker.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxRequests <= 0 {
		cfg.HalfOpenMaxRequests = 1
	}
	return &CircuitBreaker{
		cfg:             cfg,
		state:           Closed,
		lastStateChange: time.Now(),
		now:             time.Now,
	}
}

// Allow reports whether an attempt may proceed. In the half-open state
// it reserves one of the bounded probe slots; the reservation is
// settled by the next RecordSuccess or RecordFailure.
func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return true
	case Open:
		if b.now().Sub(b.lastStateChange) >= b.cfg.RecoveryTimeout {
			log.Printf("[breaker] open -> half_open")
			b.state = HalfOpen
			b.failureCount = 0
			b.halfOpenInUse = 1
			b.lastStateChange = b.now()
			return true
		}
		return false
	default: // HalfOpen
		if b.halfOpenInUse < b.cfg.HalfOpenMaxRequests {
			b.halfOpenInUse++
			return true
		}
		return false
	}
}

// RecordSuccess notes a successful operation; any success closes a
// half-open circuit.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount = 0
	if b.halfOpenInUse > 0 {
		b.halfOpenInUse--
	}
	if b.state == HalfOpen {
		log.Printf("[breaker] half_open -> closed")
		b.state = Closed
		b.halfOpenInUse = 0
		b.lastStateChange = b.now()
	}
}

// RecordFailure notes a failed operation; reaching the failure
// threshold opens the circuit, from closed and half-open alike.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.lastFailure = b.now()
	if b.halfOpenInUse > 0 {
		b.halfOpenInUse--
	}
	if b.state != Open && b.failureCount >= b.cfg.FailureThreshold {
		log.Printf("[breaker] %s -> open after %d failures", b.state, b.failureCount)
		b.state = Open
		b.lastStateChange = b.now()
	}
}

// State returns the current state without side effects.
func (b *CircuitBreaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// FailureCount returns the consecutive failure count.
func (b *CircuitBreaker) FailureCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failureCount
}
