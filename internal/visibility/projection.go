package visibility

import (
	"slices"

	"github.com/roach88/ags/internal/ir"
	"github.com/roach88/ags/internal/world"
)

// Placeholder replaces the name of a record the observer cannot see.
const Placeholder = "Unknown"

// Field names of entity projections. A visible entity projection always
// carries every one of them, whatever the entity kind.
const (
	FieldZone        = "zone"
	FieldDescription = "description"
	FieldTags        = "tags"
	FieldMarks       = "marks"
	FieldStats       = "stats"
	FieldInventory   = "inventory"
)

// EntityFields lists the entity field allow-list in projection order.
var EntityFields = []string{FieldZone, FieldDescription, FieldTags, FieldMarks, FieldStats, FieldInventory}

// Projection is the observer-safe view of one record.
type Projection struct {
	ID      string    `json:"id"`
	Kind    string    `json:"kind"`
	Name    string    `json:"name"`
	Visible bool      `json:"visible"`
	Fields  ir.Object `json:"fields"`
}

// Policy configures deep redaction inside visible records.
type Policy struct {
	// HideInventoryCounts drops charge counts from inventory slots.
	HideInventoryCounts bool
}

// Redactor turns raw records into projections.
type Redactor struct {
	policy Policy
}

// NewRedactor returns a redactor applying p.
func NewRedactor(p Policy) *Redactor {
	return &Redactor{policy: p}
}

// Redact projects rec for observer. The kind of a hidden projection is
// the record category ("entity", "zone", ...) so it does not leak whether
// an entity is a creature or an item.
func (r *Redactor) Redact(observer string, rec world.Record, w *world.World) Projection {
	if !CanObserve(observer, rec, w) {
		return hidden(rec)
	}
	switch v := rec.(type) {
	case *world.Entity:
		return r.entity(observer, v, w)
	case *world.Zone:
		return r.zone(observer, v, w)
	case *world.Clock:
		return visible(v, v.Name, ir.Object{
			"value": ir.Int(v.Value),
			"max":   ir.Int(v.Max),
		})
	case *world.Relationship:
		return visible(v, v.ID, ir.Object{
			"source":      ir.String(v.Source),
			"target":      ir.String(v.Target),
			"kind":        ir.String(string(v.Kind)),
			"value":       ir.Int(v.Value),
			"disposition": ir.String(string(world.DispositionOf(v.Value))),
		})
	}
	return hidden(rec)
}

func category(rec world.Record) string {
	switch rec.(type) {
	case *world.Entity:
		return "entity"
	case *world.Zone:
		return "zone"
	case *world.Clock:
		return "clock"
	case *world.Relationship:
		return "relationship"
	}
	return "record"
}

func hidden(rec world.Record) Projection {
	p := Projection{Kind: category(rec), Name: Placeholder, Fields: ir.Object{}}
	if rec != nil {
		p.ID = rec.RecordID()
	}
	return p
}

func visible(rec world.Record, name string, fields ir.Object) Projection {
	return Projection{
		ID:      rec.RecordID(),
		Kind:    rec.RecordKind(),
		Name:    name,
		Visible: true,
		Fields:  fields,
	}
}

func (r *Redactor) entity(observer string, e *world.Entity, w *world.World) Projection {
	fields := ir.Object{
		FieldZone:        ir.String(e.Zone),
		FieldDescription: ir.String(e.Description),
		FieldTags:        stringArray(e.Tags),
		FieldMarks:       stringArray(e.Marks),
		FieldStats:       ir.Null{},
		FieldInventory:   r.inventory(observer, e, w),
	}
	if e.Stats != nil {
		fields[FieldStats] = stats(e.Stats)
	}
	return visible(e, e.Name, fields)
}

func stats(s *world.Stats) ir.Object {
	resources := ir.Object{}
	for name, res := range s.Resources {
		resources[name] = ir.Object{"current": ir.Int(res.Current), "max": ir.Int(res.Max)}
	}
	return ir.Object{
		"hp":             ir.Int(s.HP),
		"max_hp":         ir.Int(s.MaxHP),
		"guard":          ir.Int(s.Guard),
		"guard_duration": ir.Int(s.GuardDuration),
		"resources":      resources,
	}
}

// inventory lists the slots of e in item id order. Items the observer could
// never learn about (gm_only or gone) are left out.
func (r *Redactor) inventory(observer string, e *world.Entity, w *world.World) ir.Array {
	ids := make([]string, 0, len(e.Inventory))
	for id := range e.Inventory {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := ir.Array{}
	for _, id := range ids {
		item, ok := w.Entities[id]
		if !ok || (item.Meta.GMOnly() && !Privileged(observer)) {
			continue
		}
		slot := e.Inventory[id]
		entry := ir.Object{
			"item":     ir.String(id),
			"equipped": ir.Bool(slot.Equipped),
		}
		if !r.policy.HideInventoryCounts {
			entry["charges"] = ir.Int(slot.Charges)
		}
		out = append(out, entry)
	}
	return out
}

func (r *Redactor) zone(observer string, z *world.Zone, w *world.World) Projection {
	exits := ir.Array{}
	for _, x := range z.Exits {
		to := ""
		if dest, ok := w.Zones[x.To]; ok && CanObserve(observer, dest, w) {
			to = dest.ID
		}
		exits = append(exits, ir.Object{
			"to":      ir.String(to),
			"label":   ir.String(x.Label),
			"blocked": ir.Bool(x.Blocked),
		})
	}
	occupants := ir.Array{}
	for _, id := range w.Occupants(z.ID) {
		if CanObserve(observer, w.Entities[id], w) {
			occupants = append(occupants, ir.String(id))
		}
	}
	return visible(z, z.Name, ir.Object{
		FieldDescription: ir.String(z.Description),
		FieldTags:        stringArray(z.Tags),
		"exits":          exits,
		"occupants":      occupants,
	})
}

func stringArray(s world.Set) ir.Array {
	out := make(ir.Array, 0, len(s))
	for _, v := range s {
		out = append(out, ir.String(v))
	}
	return out
}
