package visibility

import "github.com/roach88/ags/internal/world"

// GM is the privileged observer. It bypasses every rule and is meant for
// GM tooling only; player-facing paths must never pass it.
const GM = "gm"

// Privileged reports whether observer bypasses visibility rules.
func Privileged(observer string) bool {
	return observer == GM
}

// CanObserve reports whether observer may perceive rec in w. It is total
// and deterministic.
//
//   - the GM sees everything; an empty or unknown observer sees nothing
//   - gm_only records are never observable otherwise
//   - hidden records require the observer in known_by on top of the
//     record's own rule
//   - creatures and objects: strictly same zone (an entity always sees itself)
//   - items: same zone, in known_by, or carried by the observer
//   - zones: the observer's zone, one it has an exit to, or known_by
//   - clocks: any observer
//   - relationships: the observer is an endpoint, or known_by
func CanObserve(observer string, rec world.Record, w *world.World) bool {
	if Privileged(observer) {
		return true
	}
	if observer == "" || rec == nil || w == nil {
		return false
	}
	self, ok := w.Entities[observer]
	if !ok {
		return false
	}
	meta := rec.RecordMeta()
	if meta.GMOnly() {
		return false
	}
	if meta.Hidden() && !meta.Knows(observer) {
		return false
	}

	switch r := rec.(type) {
	case *world.Entity:
		return observeEntity(self, r)
	case *world.Zone:
		return observeZone(self, r, w)
	case *world.Clock:
		return true
	case *world.Relationship:
		return r.Source == observer || r.Target == observer || meta.Knows(observer)
	}
	return false
}

func observeEntity(self, e *world.Entity) bool {
	if self.ID == e.ID {
		return true
	}
	sameZone := self.Located() && self.Zone == e.Zone
	if e.Kind != world.KindItem {
		return sameZone
	}
	if sameZone || e.Meta.Knows(self.ID) {
		return true
	}
	_, carried := self.Inventory[e.ID]
	return carried
}

func observeZone(self *world.Entity, z *world.Zone, w *world.World) bool {
	if z.Meta.Knows(self.ID) {
		return true
	}
	if !self.Located() {
		return false
	}
	if self.Zone == z.ID {
		return true
	}
	here, ok := w.Zones[self.Zone]
	return ok && here.ExitTo(z.ID) >= 0
}
