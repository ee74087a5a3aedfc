package engine

import "sync/atomic"

// Clock numbers the statements an Engine executes.
//
// Every Result carries the value of Next taken when its statement started,
// so results of one ExecuteAll call are strictly increasing and a log
// reader can order statements without wall-clock time.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last sequence number handed out.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
