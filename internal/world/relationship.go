package world

import "fmt"

// RelKind is the closed set of relationship edge kinds.
type RelKind string

const (
	RelFavor      RelKind = "favor"
	RelFear       RelKind = "fear"
	RelBond       RelKind = "bond"
	RelReputation RelKind = "reputation"
	RelQuest      RelKind = "quest"
	RelDebt       RelKind = "debt"
)

// Valid reports whether k is a known relationship kind.
func (k RelKind) Valid() bool {
	switch k {
	case RelFavor, RelFear, RelBond, RelReputation, RelQuest, RelDebt:
		return true
	}
	return false
}

// Relationship value bounds.
const (
	MinRelValue = -10
	MaxRelValue = 10
)

// Relationship is a directed edge between two entities. Edges referencing
// a removed entity are tombstoned rather than deleted so the turn log and
// snapshots keep resolving.
type Relationship struct {
	ID         string  `json:"id"`
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	Kind       RelKind `json:"kind"`
	Value      int     `json:"value"`
	Tombstoned bool    `json:"tombstoned,omitempty"`
	Meta       Meta    `json:"meta"`
}

// RelationshipID is the id assigned to an edge created without one.
func RelationshipID(source, target string, kind RelKind) string {
	return fmt.Sprintf("%s->%s:%s", source, target, kind)
}

// Clone returns a deep copy of the edge.
func (r *Relationship) Clone() *Relationship {
	c := *r
	c.Meta = r.Meta.Clone()
	return &c
}

// RecordID implements Record.
func (r *Relationship) RecordID() string { return r.ID }

// RecordKind implements Record.
func (r *Relationship) RecordKind() string { return "relationship" }

// RecordMeta implements Record.
func (r *Relationship) RecordMeta() Meta { return r.Meta }

// Disposition is the derived three-bin reading of a relationship value.
type Disposition string

const (
	Hostile Disposition = "hostile"
	Neutral Disposition = "neutral"
	Ally    Disposition = "ally"
)

// Disposition thresholds: values at or below HostileAt read hostile, values
// at or above AllyAt read ally.
const (
	HostileAt = -2
	AllyAt    = 2
)

// DispositionOf classifies a relationship value.
func DispositionOf(value int) Disposition {
	switch {
	case value <= HostileAt:
		return Hostile
	case value >= AllyAt:
		return Ally
	default:
		return Neutral
	}
}
