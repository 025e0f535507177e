package world

import (
	"fmt"
	"slices"

	"github.com/roach88/ags/internal/ir"
)

// Record is implemented by every addressable record that carries Meta.
type Record interface {
	RecordID() string
	RecordKind() string
	RecordMeta() Meta
}

// World is the aggregate root. It exclusively owns every record; edges,
// clocks and the scene refer to entities and zones by id only.
type World struct {
	SchemaVersion int                      `json:"schema_version"`
	ID            string                   `json:"id"`
	Revision      int64                    `json:"revision"`
	Entities      map[string]*Entity       `json:"entities"`
	Zones         map[string]*Zone         `json:"zones"`
	Relationships map[string]*Relationship `json:"relationships"`
	Clocks        map[string]*Clock        `json:"clocks"`
	Scene         Scene                    `json:"scene"`
	Meta          Meta                     `json:"meta"`
}

// New creates an empty world at round 1.
func New(id string) *World {
	w := &World{ID: id}
	w.normalize()
	return w
}

// normalize fills defaults so that an empty collection always encodes the
// same way, whether it was built in memory or decoded from a document.
func (w *World) normalize() {
	if w.SchemaVersion == 0 {
		w.SchemaVersion = ir.SchemaVersion
	}
	if w.Entities == nil {
		w.Entities = make(map[string]*Entity)
	}
	if w.Zones == nil {
		w.Zones = make(map[string]*Zone)
	}
	if w.Relationships == nil {
		w.Relationships = make(map[string]*Relationship)
	}
	if w.Clocks == nil {
		w.Clocks = make(map[string]*Clock)
	}
	if w.Scene.Round == 0 {
		w.Scene.Round = 1
	}
	for id, e := range w.Entities {
		if e.ID == "" {
			e.ID = id
		}
		e.Tags = e.Tags.normalize()
		e.Marks = e.Marks.normalize()
		e.Meta.KnownBy = e.Meta.KnownBy.normalize()
	}
	for id, z := range w.Zones {
		if z.ID == "" {
			z.ID = id
		}
		z.Tags = z.Tags.normalize()
		z.Meta.KnownBy = z.Meta.KnownBy.normalize()
	}
	for id, r := range w.Relationships {
		if r.ID == "" {
			r.ID = id
		}
		r.Meta.KnownBy = r.Meta.KnownBy.normalize()
	}
	for id, c := range w.Clocks {
		if c.ID == "" {
			c.ID = id
		}
		if c.Max == 0 {
			c.Max = DefaultClockMax
		}
		c.Meta.KnownBy = c.Meta.KnownBy.normalize()
	}
	w.Scene.Clocks = w.Scene.Clocks.normalize()
	w.Meta.KnownBy = w.Meta.KnownBy.normalize()
}

// Clone returns a deep copy suitable as a transaction working copy.
func (w *World) Clone() *World {
	c := &World{
		SchemaVersion: w.SchemaVersion,
		ID:            w.ID,
		Revision:      w.Revision,
		Entities:      make(map[string]*Entity, len(w.Entities)),
		Zones:         make(map[string]*Zone, len(w.Zones)),
		Relationships: make(map[string]*Relationship, len(w.Relationships)),
		Clocks:        make(map[string]*Clock, len(w.Clocks)),
		Scene:         w.Scene.Clone(),
		Meta:          w.Meta.Clone(),
	}
	for id, e := range w.Entities {
		c.Entities[id] = e.Clone()
	}
	for id, z := range w.Zones {
		c.Zones[id] = z.Clone()
	}
	for id, r := range w.Relationships {
		c.Relationships[id] = r.Clone()
	}
	for id, k := range w.Clocks {
		c.Clocks[id] = k.Clone()
	}
	return c
}

// Entity looks up an entity by id.
func (w *World) Entity(id string) (*Entity, error) {
	if e, ok := w.Entities[id]; ok {
		return e, nil
	}
	return nil, notFound("entity", id)
}

// Zone looks up a zone by id.
func (w *World) Zone(id string) (*Zone, error) {
	if z, ok := w.Zones[id]; ok {
		return z, nil
	}
	return nil, notFound("zone", id)
}

// Clock looks up a clock by id.
func (w *World) Clock(id string) (*Clock, error) {
	if c, ok := w.Clocks[id]; ok {
		return c, nil
	}
	return nil, notFound("clock", id)
}

// Relationship looks up a relationship edge by id.
func (w *World) Relationship(id string) (*Relationship, error) {
	if r, ok := w.Relationships[id]; ok {
		return r, nil
	}
	return nil, notFound("relationship", id)
}

// Record looks up any addressable record by id. Entities shadow zones,
// zones shadow clocks, clocks shadow relationships.
func (w *World) Record(id string) (Record, error) {
	if e, ok := w.Entities[id]; ok {
		return e, nil
	}
	if z, ok := w.Zones[id]; ok {
		return z, nil
	}
	if c, ok := w.Clocks[id]; ok {
		return c, nil
	}
	if r, ok := w.Relationships[id]; ok {
		return r, nil
	}
	return nil, notFound("record", id)
}

// MetaOf returns a pointer to the Meta of the record with the given id, so
// handlers can mutate it on a working copy.
func (w *World) MetaOf(id string) (*Meta, error) {
	if e, ok := w.Entities[id]; ok {
		return &e.Meta, nil
	}
	if z, ok := w.Zones[id]; ok {
		return &z.Meta, nil
	}
	if c, ok := w.Clocks[id]; ok {
		return &c.Meta, nil
	}
	if r, ok := w.Relationships[id]; ok {
		return &r.Meta, nil
	}
	return nil, notFound("record", id)
}

// EntityIDs returns all entity ids in sorted order.
func (w *World) EntityIDs() []string {
	return sortedKeys(w.Entities)
}

// ZoneIDs returns all zone ids in sorted order.
func (w *World) ZoneIDs() []string {
	return sortedKeys(w.Zones)
}

// ClockIDs returns all clock ids in sorted order.
func (w *World) ClockIDs() []string {
	return sortedKeys(w.Clocks)
}

// RelationshipIDs returns all relationship ids in sorted order.
func (w *World) RelationshipIDs() []string {
	return sortedKeys(w.Relationships)
}

// Occupants returns the ids of entities located in zone, sorted.
func (w *World) Occupants(zone string) []string {
	var ids []string
	for id, e := range w.Entities {
		if e.Zone == zone {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// FindRelationship returns the live edge source->target of the given kind.
func (w *World) FindRelationship(source, target string, kind RelKind) (*Relationship, bool) {
	for _, id := range w.RelationshipIDs() {
		r := w.Relationships[id]
		if !r.Tombstoned && r.Source == source && r.Target == target && r.Kind == kind {
			return r, true
		}
	}
	return nil, false
}

// Disposition derives how source regards target. The favor edge decides;
// without one, the first live edge between the pair in id order does.
// A pair with no live edge is neutral.
func (w *World) Disposition(source, target string) Disposition {
	if r, ok := w.FindRelationship(source, target, RelFavor); ok {
		return DispositionOf(r.Value)
	}
	for _, id := range w.RelationshipIDs() {
		r := w.Relationships[id]
		if !r.Tombstoned && r.Source == source && r.Target == target {
			return DispositionOf(r.Value)
		}
	}
	return Neutral
}

// Document returns the canonical document form of the world.
func (w *World) Document() (ir.Object, error) {
	doc, err := ir.EncodeObject(w)
	if err != nil {
		return nil, fmt.Errorf("world document: %w", err)
	}
	return doc, nil
}

// Hash returns the content hash of the world document.
func (w *World) Hash() (string, error) {
	doc, err := w.Document()
	if err != nil {
		return "", err
	}
	return ir.WorldHash(doc)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
