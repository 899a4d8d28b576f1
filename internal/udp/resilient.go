package udp

import (
	"context"

	"github.com/vaultecki/py-positioning-stuff/internal/resilience"
)

// ResilientSender wraps a Sender with a retry executor so transient
// send failures are retried and a failing destination trips the
// circuit breaker instead of being hammered.
type ResilientSender struct {
	sender *Sender
	exec   *resilience.Executor
}

// NewResilientSender dials dest and attaches the retry policy.
func NewResilientSender(dest string, retry resilience.RetryConfig, breaker resilience.BreakerConfig) (*ResilientSender, error) {
	sender, err := NewSender(dest)
	if err != nil {
		return nil, err
	}
	return &ResilientSender{
		sender: sender,
		exec:   resilience.NewExecutor(retry, breaker),
	}, nil
}

// Send delivers one message through the executor. An open circuit
// returns resilience.ErrCircuitOpen without touching the network.
func (s *ResilientSender) Send(ctx context.Context, message string) error {
	return s.exec.Do(ctx, func(context.Context) error {
		return s.sender.Send(message)
	})
}

// Stats returns the executor counters.
func (s *ResilientSender) Stats() resilience.Stats { return s.exec.Stats() }

// CircuitState returns the breaker state.
func (s *ResilientSender) CircuitState() resilience.State { return s.exec.CircuitState() }

// Close releases the underlying socket.
func (s *ResilientSender) Close() error { return s.sender.Close() }
