package effect

import (
	"github.com/roach88/ags/internal/ir"
	"github.com/roach88/ags/internal/world"
)

func intChange(event, target, field string, before, after int) world.Change {
	return world.Change{Event: event, Target: target, Field: field, Before: ir.Int(before), After: ir.Int(after)}
}

func strValue(s string) ir.Value {
	if s == "" {
		return nil
	}
	return ir.String(s)
}

func requireResolved(a Atom) error {
	if a.Dice != "" {
		return fail(ErrCodeInvalidAtom, a, "dice %q must be resolved before dispatch", a.Dice)
	}
	return nil
}

func statsOf(w *world.World, a Atom) (*world.Entity, error) {
	if a.Target == "" {
		return nil, invalid(a, "target")
	}
	e, err := w.Entity(a.Target)
	if err != nil {
		return nil, unknownTarget(a, "entity", a.Target)
	}
	if e.Stats == nil {
		return nil, fail(ErrCodeOutOfDomain, a, "%s %q has no stats", e.Kind, e.ID)
	}
	return e, nil
}
