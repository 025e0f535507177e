package effect

import (
	"github.com/roach88/ags/internal/ir"
	"github.com/roach88/ags/internal/world"
)

// applyRelationship creates or updates the directed edge source->target of
// the given kind. New edges are GM knowledge until revealed.
func applyRelationship(w *world.World, a Atom, p Policy) ([]world.Change, error) {
	if err := requireResolved(a); err != nil {
		return nil, err
	}
	switch {
	case a.Source == "":
		return nil, invalid(a, "source")
	case a.Target == "":
		return nil, invalid(a, "target")
	case a.RelKind == "":
		return nil, invalid(a, "rel_kind")
	}
	if !a.RelKind.Valid() {
		return nil, fail(ErrCodeOutOfDomain, a, "unknown relationship kind %q", a.RelKind)
	}
	if a.Source == a.Target {
		return nil, fail(ErrCodeOutOfDomain, a, "relationship from %q to itself", a.Source)
	}
	if _, err := w.Entity(a.Source); err != nil {
		return nil, unknownTarget(a, "entity", a.Source)
	}
	if _, err := w.Entity(a.Target); err != nil {
		return nil, unknownTarget(a, "entity", a.Target)
	}

	edge, exists := w.FindRelationship(a.Source, a.Target, a.RelKind)
	if !exists {
		id := world.RelationshipID(a.Source, a.Target, a.RelKind)
		if old, taken := w.Relationships[id]; taken && old.Tombstoned {
			return nil, fail(ErrCodeIllegalTransition, a, "relationship %q is tombstoned", id)
		}
		edge = &world.Relationship{
			ID:     id,
			Source: a.Source,
			Target: a.Target,
			Kind:   a.RelKind,
			Meta: world.Meta{
				Visibility: world.VisibilityGMOnly,
				Source:     world.SourceGenerated,
				CreatedAt:  p.Now,
			},
		}
		w.Relationships[id] = edge
	}

	before := edge.Value
	next := before + a.Delta
	if a.Set != nil {
		next = *a.Set
	}
	edge.Value = p.bound(next, world.MinRelValue, world.MaxRelValue)
	if exists && edge.Value == before {
		return nil, nil
	}

	c := world.Change{
		Event: EventRelationshipChanged, Target: edge.ID, Related: a.Target,
		Field: "value", After: ir.Int(edge.Value),
	}
	if exists {
		c.Before = ir.Int(before)
	}
	return []world.Change{c}, nil
}
