// Package testutil holds deterministic stand-ins for the counters and clocks the
// mock draws on, so scenario runs and golden traces are reproducible.
package testutil

import (
	"sync"
	"time"
)

// Counter is a resettable monotonic counter. It hands out record ids in tests
// (it satisfies record.IDSource).
//
// Unlike engine.Clock, Counter can be reset so the same scenario can run twice
// with identical ids. Safe for concurrent use.
type Counter struct {
	mu  sync.Mutex
	seq int64
}

// NewCounter creates a counter starting at 0. The first Next returns 1.
func NewCounter() *Counter {
	return &Counter{}
}

// Next increments and returns the counter.
func (c *Counter) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the counter without incrementing.
func (c *Counter) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset sets the counter back to 0.
func (c *Counter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}

// FixedNow returns a time source that always reports t.
func FixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// SteppingNow returns a time source that starts at start and advances by step on
// every call. Safe for concurrent use.
func SteppingNow(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(step)
		return t
	}
}

// Epoch is the fixed instant scenario runs use for NOW and timestamps.
var Epoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
