package world

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/ags/internal/ir"
)

// EventWorldReset is published when a whole world is swapped in, as on a
// snapshot restore. Subscribers must drop anything derived from the old one.
const EventWorldReset = "world_reset"

// Change describes one logical mutation made by an effect handler. The
// executor turns every change into a published event after commit.
type Change struct {
	// Event is the event name, such as "hp_changed" or "zone_changed".
	Event string `json:"event"`
	// Target is the id of the mutated record, or "scene".
	Target string `json:"target"`
	// Related is a secondary id: the item for inventory changes, the edge
	// target for relationship changes.
	Related string   `json:"related,omitempty"`
	Field   string   `json:"field,omitempty"`
	Before  ir.Value `json:"before,omitempty"`
	After   ir.Value `json:"after,omitempty"`
}

type changeJSON struct {
	Event   string          `json:"event"`
	Target  string          `json:"target"`
	Related string          `json:"related,omitempty"`
	Field   string          `json:"field,omitempty"`
	Before  json.RawMessage `json:"before,omitempty"`
	After   json.RawMessage `json:"after,omitempty"`
}

// UnmarshalJSON decodes before/after into document values.
func (c *Change) UnmarshalJSON(data []byte) error {
	var raw changeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Change{Event: raw.Event, Target: raw.Target, Related: raw.Related, Field: raw.Field}
	var err error
	if len(raw.Before) > 0 {
		if c.Before, err = ir.Decode(raw.Before); err != nil {
			return fmt.Errorf("change before: %w", err)
		}
	}
	if len(raw.After) > 0 {
		if c.After, err = ir.Decode(raw.After); err != nil {
			return fmt.Errorf("change after: %w", err)
		}
	}
	return nil
}

// AfterInt returns the after value as an int, and false if it is not one.
func (c Change) AfterInt() (int, bool) {
	n, ok := c.After.(ir.Int)
	return int(n), ok
}

// BeforeString returns the before value as a string, or "".
func (c Change) BeforeString() string {
	s, _ := c.Before.(ir.String)
	return string(s)
}

// AfterString returns the after value as a string, or "".
func (c Change) AfterString() string {
	s, _ := c.After.(ir.String)
	return string(s)
}
