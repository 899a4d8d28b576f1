// Package udp provides the datagram transport: a polling receive loop
// that hands NMEA text to registered callbacks, and send primitives for
// outbound sentences.
package udp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"
)

// Callback receives one decoded datagram and the sender address. It
// runs synchronously on the receive goroutine, so it must be fast or
// hand work off.
type Callback func(line string, addr *net.UDPAddr)

// ReceiverConfig configures a Receiver.
type ReceiverConfig struct {
	Host       string
	Port       int
	BufferSize int
	// PollInterval bounds how long one blocking read waits before the
	// loop re-checks liveness.
	PollInterval time.Duration
}

// Stats counts receiver activity.
type Stats struct {
	PacketsReceived uint64
	PacketsDropped  uint64
	BytesReceived   uint64
	Errors          uint64
}

// Receiver owns one bound datagram socket and dispatches received text
// to callbacks in registration order.
type Receiver struct {
	cfg  ReceiverConfig
	conn *net.UDPConn

	mu        sync.Mutex
	callbacks []Callback

	packets uint64
	dropped uint64
	bytes   uint64
	errs    uint64
}

// NewReceiver binds the receive socket.
func NewReceiver(cfg ReceiverConfig) (*Receiver, error) {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 4096
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 250 * time.Millisecond
	}
	addr := &net.UDPAddr{IP: net.ParseIP(cfg.Host), Port: cfg.Port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("bind udp %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return &Receiver{cfg: cfg, conn: conn}, nil
}

// Register appends a callback. Callbacks registered after Run starts
// take effect on the next datagram.
func (r *Receiver) Register(cb Callback) {
	if cb == nil {
		return
	}
	r.mu.Lock()
	r.callbacks = append(r.callbacks, cb)
	r.mu.Unlock()
}

// LocalAddr returns the bound address.
func (r *Receiver) LocalAddr() net.Addr { return r.conn.LocalAddr() }

// Run receives until ctx is cancelled. Each iteration waits at most the
// poll interval before re-checking liveness; datagrams that are not
// valid UTF-8 are dropped and counted, never propagated.
func (r *Receiver) Run(ctx context.Context) error {
	log.Printf("[udp] receiver listening on %s", r.conn.LocalAddr())
	buf := make([]byte, r.cfg.BufferSize)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		if err := r.conn.SetReadDeadline(time.Now().Add(r.cfg.PollInterval)); err != nil {
			return fmt.Errorf("set deadline: %w", err)
		}
		n, addr, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			atomic.AddUint64(&r.errs, 1)
			log.Printf("[udp] receive error: %v", err)
			continue
		}

		atomic.AddUint64(&r.packets, 1)
		atomic.AddUint64(&r.bytes, uint64(n))

		if !utf8.Valid(buf[:n]) {
			atomic.AddUint64(&r.dropped, 1)
			log.Printf("[udp] dropping non-UTF-8 datagram from %s", addr)
			continue
		}
		line := strings.TrimSpace(string(buf[:n]))

		r.mu.Lock()
		callbacks := make([]Callback, len(r.callbacks))
		copy(callbacks, r.callbacks)
		r.mu.Unlock()

		for _, cb := range callbacks {
			cb(line, addr)
		}
	}
}

// Stats returns a snapshot of the receive counters.
func (r *Receiver) Stats() Stats {
	return Stats{
		PacketsReceived: atomic.LoadUint64(&r.packets),
		PacketsDropped:  atomic.LoadUint64(&r.dropped),
		BytesReceived:   atomic.LoadUint64(&r.bytes),
		Errors:          atomic.LoadUint64(&r.errs),
	}
}

// Close releases the socket; a running loop exits on the next read.
func (r *Receiver) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}
