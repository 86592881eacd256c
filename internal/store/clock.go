package store

import "sync/atomic"

// Sequencer hands out strictly increasing log sequence numbers.
type Sequencer interface {
	Next() int64
}

// Clock is the logical clock behind log sequence numbers. Ordering by
// seq instead of timestamps keeps the log deterministic.
type Clock struct {
	seq atomic.Int64
}

// NewClockAt returns a clock whose next value is start+1. Open resumes
// from the highest logged seq.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last sequence number handed out.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
