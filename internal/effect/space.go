package effect

import (
	"github.com/roach88/ags/internal/ir"
	"github.com/roach88/ags/internal/world"
)

// applyPosition moves an entity along an unblocked exit of its current
// zone. Unlocated entities may be placed in any zone.
func applyPosition(w *world.World, a Atom, _ Policy) ([]world.Change, error) {
	if a.Target == "" {
		return nil, invalid(a, "target")
	}
	e, err := w.Entity(a.Target)
	if err != nil {
		return nil, unknownTarget(a, "entity", a.Target)
	}

	if a.Remove {
		if !e.Located() {
			return nil, nil
		}
		from := e.Zone
		e.Zone = ""
		return []world.Change{{Event: EventZoneChanged, Target: e.ID, Field: "zone", Before: ir.String(from)}}, nil
	}

	if a.To == "" {
		return nil, invalid(a, "to")
	}
	if _, err := w.Zone(a.To); err != nil {
		return nil, unknownTarget(a, "zone", a.To)
	}
	if e.Zone == a.To {
		return nil, nil
	}
	if e.Located() {
		cur, err := w.Zone(e.Zone)
		if err != nil {
			return nil, unknownTarget(a, "zone", e.Zone)
		}
		if i := cur.ExitTo(a.To); i < 0 {
			return nil, fail(ErrCodeIllegalTransition, a, "%q is not adjacent to %q", a.To, cur.ID)
		} else if cur.Exits[i].Blocked {
			return nil, fail(ErrCodeIllegalTransition, a, "exit from %q to %q is blocked", cur.ID, a.To)
		}
	}

	from := e.Zone
	e.Zone = a.To
	return []world.Change{{
		Event: EventZoneChanged, Target: e.ID, Field: "zone",
		Before: strValue(from), After: ir.String(a.To),
	}}, nil
}

func applyExit(w *world.World, a Atom, _ Policy) ([]world.Change, error) {
	if a.Target == "" {
		return nil, invalid(a, "target")
	}
	if a.To == "" {
		return nil, invalid(a, "to")
	}
	if a.Blocked == nil {
		return nil, invalid(a, "blocked")
	}
	z, err := w.Zone(a.Target)
	if err != nil {
		return nil, unknownTarget(a, "zone", a.Target)
	}
	i := z.ExitTo(a.To)
	if i < 0 {
		return nil, unknownTarget(a, "exit to", a.To)
	}
	before := z.Exits[i].Blocked
	if before == *a.Blocked {
		return nil, nil
	}
	z.Exits[i].Blocked = *a.Blocked
	return []world.Change{{
		Event: EventExitChanged, Target: z.ID, Related: a.To, Field: "blocked",
		Before: ir.Bool(before), After: ir.Bool(*a.Blocked),
	}}, nil
}
