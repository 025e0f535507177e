package world

// Clock is a bounded progress track (alarm raised, ritual completion).
type Clock struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value int    `json:"value"`
	Max   int    `json:"max"`
	Meta  Meta   `json:"meta"`
}

// DefaultClockMax is the maximum used when a clock is created without one.
const DefaultClockMax = 10

// Filled reports whether the clock reached its maximum.
func (c *Clock) Filled() bool {
	return c.Value >= c.Max
}

// Clone returns a deep copy of the clock.
func (c *Clock) Clone() *Clock {
	cp := *c
	cp.Meta = c.Meta.Clone()
	return &cp
}

// RecordID implements Record.
func (c *Clock) RecordID() string { return c.ID }

// RecordKind implements Record.
func (c *Clock) RecordKind() string { return "clock" }

// RecordMeta implements Record.
func (c *Clock) RecordMeta() Meta { return c.Meta }
