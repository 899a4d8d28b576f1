package udp

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Sender delivers NMEA sentences to one destination over a dialed
// datagram socket.
type Sender struct {
	dest string
	conn *net.UDPConn
}

// NewSender resolves and dials the destination.
func NewSender(dest string) (*Sender, error) {
	addr, err := net.ResolveUDPAddr("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("resolve dest: %w", err)
	}

	// DialUDP selects a suitable local address automatically.
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial udp: %w", err)
	}

	return &Sender{dest: dest, conn: conn}, nil
}

// Dest returns the destination address string.
func (s *Sender) Dest() string { return s.dest }

// Send writes one message as a single datagram.
func (s *Sender) Send(message string) error {
	if message == "" {
		return nil
	}
	_, err := s.conn.Write([]byte(message))
	return err
}

// SendBurst sends messages in order with a fixed inter-message delay,
// returning how many were delivered. Cancellation stops the burst
// between messages.
func (s *Sender) SendBurst(ctx context.Context, messages []string, delay time.Duration) (int, error) {
	sent := 0
	for i, msg := range messages {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if err := s.Send(msg); err != nil {
			return sent, err
		}
		sent++

		if delay > 0 && i < len(messages)-1 {
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return sent, ctx.Err()
			case <-t.C:
			}
		}
	}
	return sent, nil
}

// Close releases the socket.
func (s *Sender) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
