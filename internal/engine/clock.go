package engine

import "sync/atomic"

// Clock is a monotonic logical clock for resolution and clear events.
//
// Every event a scope emits is stamped with a strictly increasing seq from this
// clock, so traces order deterministically without wall-clock races. Child scopes
// share their parent's clock, which keeps one total order across a database and
// all of its models.
//
// Clock is safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific sequence number.
// Used when a journal run resumes numbering after earlier runs.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
