package engine

import "sync/atomic"

// Clock is the monotonic logical clock that assigns message seq numbers.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
// Only the Run loop calls Next in practice.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock positioned at start. The next call to Next
// returns start+1. Used to resume after the last journaled seq.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// Release hands seq back so the next call to Next issues it again. It only
// succeeds while seq is still the last issued number.
func (c *Clock) Release(seq int64) bool {
	return c.seq.CompareAndSwap(seq, seq-1)
}
