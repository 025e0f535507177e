package effect

import (
	"slices"

	"github.com/roach88/ags/internal/ir"
	"github.com/roach88/ags/internal/world"
)

// applySpawn creates an entity. This is the only way records enter a world
// after it is loaded.
func applySpawn(w *world.World, a Atom, p Policy) ([]world.Change, error) {
	if a.Entity == nil {
		return nil, invalid(a, "entity")
	}
	e := a.Entity.Clone()
	a.Target = e.ID
	if e.ID == "" {
		return nil, invalid(a, "entity.id")
	}
	if _, exists := w.Entities[e.ID]; exists {
		return nil, fail(ErrCodeIllegalTransition, a, "entity %q already exists", e.ID)
	}
	if !e.Kind.Valid() {
		return nil, fail(ErrCodeOutOfDomain, a, "unknown entity kind %q", e.Kind)
	}
	if e.Kind.Creature() && e.Stats == nil {
		return nil, fail(ErrCodeOutOfDomain, a, "%s requires stats", e.Kind)
	}
	if e.Kind == world.KindItem && (e.Stats != nil || len(e.Inventory) > 0) {
		return nil, fail(ErrCodeOutOfDomain, a, "items carry neither stats nor inventory")
	}
	if e.Located() {
		if _, err := w.Zone(e.Zone); err != nil {
			return nil, unknownTarget(a, "zone", e.Zone)
		}
	}

	e.Tags = world.NewSet(e.Tags...)
	e.Marks = world.NewSet(e.Marks...)
	e.Meta.KnownBy = world.NewSet(e.Meta.KnownBy...)
	if e.Meta.Source == "" {
		e.Meta.Source = world.SourceGenerated
	}
	if p.Now != "" {
		e.Meta.CreatedAt = p.Now
	}
	w.Entities[e.ID] = e

	changes := []world.Change{{Event: EventEntitySpawned, Target: e.ID, Field: "kind", After: ir.String(string(e.Kind))}}
	if e.Located() {
		changes = append(changes, world.Change{Event: EventZoneChanged, Target: e.ID, Field: "zone", After: ir.String(e.Zone)})
	}
	return changes, nil
}

// applyRemove destroys an entity. Edges touching it are tombstoned, it
// leaves the turn order, and inventory slots holding it are dropped.
func applyRemove(w *world.World, a Atom, _ Policy) ([]world.Change, error) {
	if a.Target == "" {
		return nil, invalid(a, "target")
	}
	e, err := w.Entity(a.Target)
	if err != nil {
		return nil, unknownTarget(a, "entity", a.Target)
	}
	delete(w.Entities, e.ID)
	changes := []world.Change{{Event: EventEntityRemoved, Target: e.ID, Field: "kind", Before: ir.String(string(e.Kind))}}
	if e.Located() {
		changes = append(changes, world.Change{Event: EventZoneChanged, Target: e.ID, Field: "zone", Before: ir.String(e.Zone)})
	}

	for _, id := range w.RelationshipIDs() {
		r := w.Relationships[id]
		if r.Tombstoned || (r.Source != e.ID && r.Target != e.ID) {
			continue
		}
		r.Tombstoned = true
		changes = append(changes, world.Change{
			Event: EventRelationshipChanged, Target: r.ID, Related: r.Target, Field: "tombstoned",
			Before: ir.Bool(false), After: ir.Bool(true),
		})
	}

	s := &w.Scene
	if i := slices.Index(s.TurnOrder, e.ID); i >= 0 {
		before := s.CurrentActor()
		s.TurnOrder = slices.Delete(s.TurnOrder, i, i+1)
		if i < s.TurnIndex {
			s.TurnIndex--
		}
		if s.TurnIndex >= len(s.TurnOrder) {
			s.TurnIndex = 0
		}
		changes = append(changes, world.Change{
			Event: EventTurnAdvanced, Target: world.SceneID, Field: "turn_order",
			Before: strValue(before), After: strValue(s.CurrentActor()),
		})
	}

	for _, id := range w.EntityIDs() {
		holder := w.Entities[id]
		slot, ok := holder.Inventory[e.ID]
		if !ok {
			continue
		}
		delete(holder.Inventory, e.ID)
		changes = append(changes, world.Change{
			Event: EventInventoryChanged, Target: holder.ID, Related: e.ID,
			Field: "charges", Before: ir.Int(slot.Charges),
		})
	}
	return changes, nil
}
