package track

import (
	"log"
	"sync"
	"time"
)

// Statistics is an aggregate view over a Store's history.
type Statistics struct {
	TotalReceived   int64      `json:"total_received"`
	TotalDistance   float64    `json:"total_distance"` // meters
	AverageSpeed    float64    `json:"average_speed"`  // m/s
	StoredPositions int        `json:"stored_positions"`
	FirstTimestamp  *time.Time `json:"first_timestamp,omitempty"`
	LastTimestamp   *time.Time `json:"last_timestamp,omitempty"`
	TimeSpanSeconds *float64   `json:"time_span_seconds,omitempty"`
}

// Store holds a bounded, ordered history of fixes with incremental
// statistics and sink fan-out. Safe for concurrent use. The history is
// a fixed-capacity circular buffer: once full, the oldest fix is
// evicted first.
type Store struct {
	// addMu serializes Add including notification, so sinks observe
	// fixes in chronological order.
	addMu sync.Mutex

	mu    sync.RWMutex
	buf   []Fix
	head  int // index of oldest entry
	count int

	totalReceived int64
	totalDistance float64
	averageSpeed  float64

	sinks []Sink
}

// NewStore creates a store keeping at most capacity fixes.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Store{buf: make([]Fix, capacity)}
}

// Capacity returns the configured history bound.
func (s *Store) Capacity() int { return len(s.buf) }

// Add commits one fix: accumulates distance from the previous fix,
// derives speed when absent and wall-clock time advanced, appends with
// FIFO eviction, updates aggregates and then notifies sinks. The state
// lock is released before sinks run; a panicking sink is logged and
// does not stop the fan-out.
func (s *Store) Add(fix Fix) {
	s.addMu.Lock()
	defer s.addMu.Unlock()

	s.mu.Lock()
	if s.count > 0 {
		prev := s.buf[(s.head+s.count-1)%len(s.buf)]
		distance := prev.DistanceTo(fix)
		s.totalDistance += distance

		// Derive speed only when time moved forward; out-of-order or
		// skewed timestamps leave it absent.
		if fix.Speed == nil {
			if elapsed := fix.Timestamp.Sub(prev.Timestamp).Seconds(); elapsed > 0 {
				v := distance / elapsed
				fix.Speed = &v
			}
		}
	}

	if s.count == len(s.buf) {
		s.buf[s.head] = fix
		s.head = (s.head + 1) % len(s.buf)
	} else {
		s.buf[(s.head+s.count)%len(s.buf)] = fix
		s.count++
	}
	s.totalReceived++

	s.recomputeAverageSpeed()

	sinks := make([]Sink, len(s.sinks))
	copy(sinks, s.sinks)
	s.mu.Unlock()

	for _, sink := range sinks {
		notify(sink, fix)
	}
}

func notify(sink Sink, fix Fix) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[store] sink panic: %v", r)
		}
	}()
	sink.OnFix(fix)
}

// recomputeAverageSpeed averages over stored fixes that carry a speed.
// Caller holds mu.
func (s *Store) recomputeAverageSpeed() {
	var sum float64
	var n int
	for i := 0; i < s.count; i++ {
		f := s.buf[(s.head+i)%len(s.buf)]
		if f.Speed != nil {
			sum += *f.Speed
			n++
		}
	}
	if n > 0 {
		s.averageSpeed = sum / float64(n)
	}
}

// Positions returns the stored history oldest-first; a positive count
// limits the result to the most recent entries.
func (s *Store) Positions(count int) []Fix {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.count
	if count > 0 && count < n {
		n = count
	}
	out := make([]Fix, n)
	start := s.count - n
	for i := 0; i < n; i++ {
		out[i] = s.buf[(s.head+start+i)%len(s.buf)]
	}
	return out
}

// Latest returns the most recent fix.
func (s *Store) Latest() (Fix, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.count == 0 {
		return Fix{}, false
	}
	return s.buf[(s.head+s.count-1)%len(s.buf)], true
}

// Count returns the number of stored fixes.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Statistics returns the aggregate view of the current history.
func (s *Store) Statistics() Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Statistics{
		TotalReceived:   s.totalReceived,
		TotalDistance:   s.totalDistance,
		AverageSpeed:    s.averageSpeed,
		StoredPositions: s.count,
	}
	if s.count > 0 {
		first := s.buf[s.head].Timestamp
		last := s.buf[(s.head+s.count-1)%len(s.buf)].Timestamp
		span := last.Sub(first).Seconds()
		stats.FirstTimestamp = &first
		stats.LastTimestamp = &last
		stats.TimeSpanSeconds = &span
	}
	return stats
}

// Clear empties the history and resets distance and speed aggregates.
// The received counter and sink registrations persist.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.head = 0
	s.count = 0
	s.totalDistance = 0
	s.averageSpeed = 0
}

// Register adds a sink; registering the same sink twice is a no-op.
func (s *Store) Register(sink Sink) {
	if sink == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.sinks {
		if existing == sink {
			return
		}
	}
	s.sinks = append(s.sinks, sink)
}

// Unregister removes a sink by identity; unknown sinks are ignored.
func (s *Store) Unregister(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.sinks {
		if existing == sink {
			s.sinks = append(s.sinks[:i], s.sinks[i+1:]...)
			return
		}
	}
}
