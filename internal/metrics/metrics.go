// Package metrics collects process counters and value series for the
// status API.
package metrics

import (
	"encoding/json"
	"sync"
	"time"
)

// ValueStats summarizes a recorded value series.
type ValueStats struct {
	Current float64 `json:"current"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Avg     float64 `json:"avg"`
	Count   int64   `json:"count"`
}

type valueSeries struct {
	current float64
	min     float64
	max     float64
	sum     float64
	count   int64
}

// Collector aggregates named counters, value series and timers. All
// methods are safe for concurrent use.
type Collector struct {
	mu       sync.Mutex
	started  time.Time
	counters map[string]int64
	values   map[string]*valueSeries
	timers   map[string]time.Time
}

func NewCollector() *Collector {
	return &Collector{
		started:  time.Now(),
		counters: make(map[string]int64),
		values:   make(map[string]*valueSeries),
		timers:   make(map[string]time.Time),
	}
}

// Inc adds delta to the named counter.
func (c *Collector) Inc(name string, delta int64) {
	c.mu.Lock()
	c.counters[name] += delta
	c.mu.Unlock()
}

// Record adds a sample to the named value series.
func (c *Collector) Record(name string, v float64) {
	c.mu.Lock()
	s, ok := c.values[name]
	if !ok {
		s = &valueSeries{min: v, max: v}
		c.values[name] = s
	}
	s.current = v
	if v < s.min {
		s.min = v
	}
	if v > s.max {
		s.max = v
	}
	s.sum += v
	s.count++
	c.mu.Unlock()
}

// StartTimer marks the start of a named duration measurement.
func (c *Collector) StartTimer(name string) {
	c.mu.Lock()
	c.timers[name] = time.Now()
	c.mu.Unlock()
}

// StopTimer records the elapsed seconds since StartTimer under the
// same name and returns the duration. A stop without a matching start
// returns zero.
func (c *Collector) StopTimer(name string) time.Duration {
	c.mu.Lock()
	start, ok := c.timers[name]
	if ok {
		delete(c.timers, name)
	}
	c.mu.Unlock()
	if !ok {
		return 0
	}
	d := time.Since(start)
	c.Record(name, d.Seconds())
	return d
}

// Counter returns the current value of a named counter.
func (c *Collector) Counter(name string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters[name]
}

// Value returns the stats of a named value series, or false when no
// samples have been recorded.
func (c *Collector) Value(name string) (ValueStats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.values[name]
	if !ok {
		return ValueStats{}, false
	}
	return stats(s), true
}

// Uptime reports the time elapsed since the collector was created.
func (c *Collector) Uptime() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.started)
}

// Snapshot holds a point-in-time export of all metrics.
type Snapshot struct {
	UptimeSeconds float64               `json:"uptime_seconds"`
	Counters      map[string]int64      `json:"counters"`
	Values        map[string]ValueStats `json:"values"`
}

func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		UptimeSeconds: time.Since(c.started).Seconds(),
		Counters:      make(map[string]int64, len(c.counters)),
		Values:        make(map[string]ValueStats, len(c.values)),
	}
	for k, v := range c.counters {
		snap.Counters[k] = v
	}
	for k, s := range c.values {
		snap.Values[k] = stats(s)
	}
	return snap
}

// JSON renders the snapshot as indented JSON.
func (c *Collector) JSON() ([]byte, error) {
	return json.MarshalIndent(c.Snapshot(), "", "  ")
}

// Reset clears all counters, series and timers. The uptime reference
// is kept.
func (c *Collector) Reset() {
	c.mu.Lock()
	c.counters = make(map[string]int64)
	c.values = make(map[string]*valueSeries)
	c.timers = make(map[string]time.Time)
	c.mu.Unlock()
}

func stats(s *valueSeries) ValueStats {
	return ValueStats{
		Current: s.current,
		Min:     s.min,
		Max:     s.max,
		Avg:     s.sum / float64(s.count),
		Count:   s.count,
	}
}
