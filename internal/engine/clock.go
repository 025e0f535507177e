package engine

import "sync/atomic"

// RevisionClock hands out world revisions. Every commit takes the next
// value, reaction commits and resets included, so a revision names exactly
// one committed world. Only the commit path advances it; readers may call
// Last at any time.
type RevisionClock struct {
	last atomic.Int64
}

// NewRevisionClock returns a clock whose first revision is last+1.
func NewRevisionClock(last int64) *RevisionClock {
	c := &RevisionClock{}
	c.last.Store(last)
	return c
}

// Next advances the clock and returns the new revision.
func (c *RevisionClock) Next() int64 {
	return c.last.Add(1)
}

// Last returns the most recently issued revision.
func (c *RevisionClock) Last() int64 {
	return c.last.Load()
}
