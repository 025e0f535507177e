package world

import "maps"

// Kind discriminates the entity variants.
type Kind string

const (
	KindPC     Kind = "pc"
	KindNPC    Kind = "npc"
	KindObject Kind = "object"
	KindItem   Kind = "item"
)

// Valid reports whether k is one of the closed set of entity kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindPC, KindNPC, KindObject, KindItem:
		return true
	}
	return false
}

// Creature reports whether entities of this kind act in the turn order and
// must carry stats.
func (k Kind) Creature() bool {
	return k == KindPC || k == KindNPC
}

// Entity is a tagged variant over player characters, non-player characters,
// objects and items. Kind selects which payload fields are meaningful:
// creatures carry Stats and may carry Inventory; objects may carry Stats
// (breakable doors, barricades); items carry neither.
type Entity struct {
	ID          string          `json:"id"`
	Kind        Kind            `json:"kind"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Zone        string          `json:"zone,omitempty"`
	Tags        Set             `json:"tags,omitempty"`
	Marks       Set             `json:"marks,omitempty"`
	Stats       *Stats          `json:"stats,omitempty"`
	Inventory   map[string]Slot `json:"inventory,omitempty"`
	Meta        Meta            `json:"meta"`
}

// Stats holds the bounded resources of an entity.
type Stats struct {
	HP            int                 `json:"hp"`
	MaxHP         int                 `json:"max_hp"`
	Guard         int                 `json:"guard"`
	GuardDuration int                 `json:"guard_duration,omitempty"`
	Resources     map[string]Resource `json:"resources,omitempty"`
}

// Resource is a named bounded pool such as stamina or mana.
type Resource struct {
	Current int `json:"current"`
	Max     int `json:"max"`
}

// Slot is one inventory entry, keyed by item entity id.
type Slot struct {
	Charges  int  `json:"charges"`
	Equipped bool `json:"equipped,omitempty"`
}

// Located reports whether the entity occupies a zone.
func (e *Entity) Located() bool {
	return e.Zone != ""
}

// Clone returns a deep copy of the entity.
func (e *Entity) Clone() *Entity {
	c := *e
	c.Tags = e.Tags.Clone()
	c.Marks = e.Marks.Clone()
	c.Meta = e.Meta.Clone()
	if e.Stats != nil {
		s := *e.Stats
		s.Resources = maps.Clone(e.Stats.Resources)
		c.Stats = &s
	}
	c.Inventory = maps.Clone(e.Inventory)
	return &c
}

// RecordID implements Record.
func (e *Entity) RecordID() string { return e.ID }

// RecordKind implements Record.
func (e *Entity) RecordKind() string { return string(e.Kind) }

// RecordMeta implements Record.
func (e *Entity) RecordMeta() Meta { return e.Meta }
