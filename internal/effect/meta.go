package effect

import (
	"github.com/roach88/ags/internal/ir"
	"github.com/roach88/ags/internal/world"
)

// applyTag adds or removes an ambient tag. Entities and zones carry tag
// sets; the scene carries a key/value tag map.
func applyTag(w *world.World, a Atom, _ Policy) ([]world.Change, error) {
	if a.Target == "" {
		return nil, invalid(a, "target")
	}
	if a.Target == world.SceneID {
		return applySceneTag(w, a)
	}
	if a.Tag == "" {
		return nil, invalid(a, "tag")
	}

	var tags *world.Set
	if e, ok := w.Entities[a.Target]; ok {
		tags = &e.Tags
	} else if z, ok := w.Zones[a.Target]; ok {
		tags = &z.Tags
	} else {
		return nil, unknownTarget(a, "entity or zone", a.Target)
	}

	if a.Remove {
		if !tags.Remove(a.Tag) {
			return nil, nil
		}
		return []world.Change{{Event: EventTagRemoved, Target: a.Target, Field: "tags", Before: ir.String(a.Tag)}}, nil
	}
	if !tags.Add(a.Tag) {
		return nil, nil
	}
	return []world.Change{{Event: EventTagAdded, Target: a.Target, Field: "tags", After: ir.String(a.Tag)}}, nil
}

func applySceneTag(w *world.World, a Atom) ([]world.Change, error) {
	if a.Key == "" {
		return nil, invalid(a, "key")
	}
	before, had := w.Scene.Tags[a.Key]
	if a.Remove {
		if !had {
			return nil, nil
		}
		delete(w.Scene.Tags, a.Key)
		return []world.Change{{Event: EventTagRemoved, Target: world.SceneID, Field: a.Key, Before: ir.String(before)}}, nil
	}
	if had && before == a.Value {
		return nil, nil
	}
	if w.Scene.Tags == nil {
		w.Scene.Tags = make(map[string]string)
	}
	w.Scene.Tags[a.Key] = a.Value
	c := world.Change{Event: EventTagAdded, Target: world.SceneID, Field: a.Key, After: ir.String(a.Value)}
	if had {
		c.Before = ir.String(before)
	}
	return []world.Change{c}, nil
}

// applyReveal adds or removes an observer from a record's known_by set.
func applyReveal(w *world.World, a Atom, p Policy) ([]world.Change, error) {
	if a.Target == "" {
		return nil, invalid(a, "target")
	}
	if a.Observer == "" {
		return nil, invalid(a, "observer")
	}
	m, err := w.MetaOf(a.Target)
	if err != nil {
		return nil, unknownTarget(a, "record", a.Target)
	}
	var changed bool
	if a.Remove {
		changed = m.KnownBy.Remove(a.Observer)
	} else {
		changed = m.KnownBy.Add(a.Observer)
	}
	if !changed {
		return nil, nil
	}
	if p.Now != "" {
		m.ChangedAt = p.Now
	}
	return []world.Change{{
		Event: EventKnownByChanged, Target: a.Target, Related: a.Observer, Field: "known_by",
		Before: ir.Bool(a.Remove), After: ir.Bool(!a.Remove),
	}}, nil
}

func applyVisibility(w *world.World, a Atom, p Policy) ([]world.Change, error) {
	if a.Target == "" {
		return nil, invalid(a, "target")
	}
	if a.Level == "" {
		return nil, invalid(a, "level")
	}
	if !a.Level.Valid() {
		return nil, fail(ErrCodeOutOfDomain, a, "unknown visibility level %q", a.Level)
	}
	m, err := w.MetaOf(a.Target)
	if err != nil {
		return nil, unknownTarget(a, "record", a.Target)
	}
	before := m.Visibility
	if before == a.Level {
		return nil, nil
	}
	m.Visibility = a.Level
	if p.Now != "" {
		m.ChangedAt = p.Now
	}
	return []world.Change{{
		Event: EventVisibilityChanged, Target: a.Target, Field: "visibility",
		Before: strValue(string(before)), After: ir.String(string(a.Level)),
	}}, nil
}
