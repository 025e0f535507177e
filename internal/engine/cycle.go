package engine

import "sync"

// CycleDetector remembers which (rule, effect) pairs have already been
// proposed for a turn, so a reaction batch never carries the same effect
// from the same rule twice.
//
// Two events in one turn can make a rule propose the same follow-up, for
// example two hp changes on one target both reaching zero. The second
// proposal is dropped.
type CycleDetector struct {
	mu      sync.Mutex
	history map[string]map[string]bool // map[turn_id]map[rule:effect]bool
}

// NewCycleDetector creates a new detector.
func NewCycleDetector() *CycleDetector {
	return &CycleDetector{
		history: make(map[string]map[string]bool),
	}
}

// WouldCycle reports whether rule already proposed effectKey in turnID.
//
// Thread-safe: Can be called concurrently.
func (c *CycleDetector) WouldCycle(turnID, rule, effectKey string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.history[turnID] == nil {
		return false
	}
	return c.history[turnID][rule+":"+effectKey]
}

// Record marks that rule proposed effectKey in turnID.
//
// Thread-safe: Can be called concurrently.
func (c *CycleDetector) Record(turnID, rule, effectKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.history[turnID] == nil {
		c.history[turnID] = make(map[string]bool)
	}
	c.history[turnID][rule+":"+effectKey] = true
}

// Clear removes all history for a turn. The engine clears a turn as soon as
// its reaction batch has been built.
//
// Thread-safe: Can be called concurrently.
func (c *CycleDetector) Clear(turnID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.history, turnID)
}

// HistorySize returns the number of turns with tracked history.
func (c *CycleDetector) HistorySize() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.history)
}

// TurnHistorySize returns the number of pairs tracked for a turn.
func (c *CycleDetector) TurnHistorySize(turnID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.history[turnID])
}
