package effect

import (
	"github.com/roach88/ags/internal/ir"
	"github.com/roach88/ags/internal/world"
)

func applyHP(w *world.World, a Atom, p Policy) ([]world.Change, error) {
	if err := requireResolved(a); err != nil {
		return nil, err
	}
	e, err := statsOf(w, a)
	if err != nil {
		return nil, err
	}
	before := e.Stats.HP
	e.Stats.HP = p.bound(before+a.Delta, 0, e.Stats.MaxHP)
	if e.Stats.HP == before {
		return nil, nil
	}
	return []world.Change{intChange(EventHPChanged, e.ID, "hp", before, e.Stats.HP)}, nil
}

func applyResource(w *world.World, a Atom, p Policy) ([]world.Change, error) {
	if err := requireResolved(a); err != nil {
		return nil, err
	}
	if a.Resource == "" {
		return nil, invalid(a, "resource")
	}
	e, err := statsOf(w, a)
	if err != nil {
		return nil, err
	}
	res, ok := e.Stats.Resources[a.Resource]
	if !ok {
		return nil, unknownTarget(a, "resource", a.Resource)
	}
	before := res.Current
	res.Current = p.bound(before+a.Delta, 0, res.Max)
	if res.Current == before {
		return nil, nil
	}
	e.Stats.Resources[a.Resource] = res
	return []world.Change{intChange(EventResourceChanged, e.ID, a.Resource, before, res.Current)}, nil
}

func applyGuard(w *world.World, a Atom, p Policy) ([]world.Change, error) {
	if err := requireResolved(a); err != nil {
		return nil, err
	}
	if a.Duration < 0 {
		return nil, fail(ErrCodeOutOfDomain, a, "duration %d is negative", a.Duration)
	}
	e, err := statsOf(w, a)
	if err != nil {
		return nil, err
	}

	var changes []world.Change
	before := e.Stats.Guard
	e.Stats.Guard = p.floor(before+a.Delta, 0)
	if e.Stats.Guard != before {
		changes = append(changes, intChange(EventGuardChanged, e.ID, "guard", before, e.Stats.Guard))
	}

	beforeDur := e.Stats.GuardDuration
	switch {
	case e.Stats.Guard <= 0:
		e.Stats.GuardDuration = 0
	case a.Duration > 0:
		e.Stats.GuardDuration = a.Duration
	}
	if e.Stats.GuardDuration != beforeDur {
		changes = append(changes, intChange(EventGuardChanged, e.ID, "guard_duration", beforeDur, e.Stats.GuardDuration))
	}
	return changes, nil
}

func applyMark(w *world.World, a Atom, _ Policy) ([]world.Change, error) {
	if a.Target == "" {
		return nil, invalid(a, "target")
	}
	if a.Mark == "" {
		return nil, invalid(a, "mark")
	}
	e, err := w.Entity(a.Target)
	if err != nil {
		return nil, unknownTarget(a, "entity", a.Target)
	}
	if a.Remove {
		if !e.Marks.Remove(a.Mark) {
			return nil, nil
		}
		return []world.Change{{Event: EventMarkRemoved, Target: e.ID, Field: "marks", Before: ir.String(a.Mark)}}, nil
	}
	if !e.Marks.Add(a.Mark) {
		return nil, nil
	}
	return []world.Change{{Event: EventMarkAdded, Target: e.ID, Field: "marks", After: ir.String(a.Mark)}}, nil
}

func applyInventory(w *world.World, a Atom, p Policy) ([]world.Change, error) {
	if err := requireResolved(a); err != nil {
		return nil, err
	}
	if a.Target == "" {
		return nil, invalid(a, "target")
	}
	if a.Item == "" {
		return nil, invalid(a, "item")
	}
	holder, err := w.Entity(a.Target)
	if err != nil {
		return nil, unknownTarget(a, "entity", a.Target)
	}
	if holder.Kind == world.KindItem {
		return nil, fail(ErrCodeOutOfDomain, a, "items cannot hold inventory")
	}
	item, err := w.Entity(a.Item)
	if err != nil {
		return nil, unknownTarget(a, "item", a.Item)
	}
	if item.Kind != world.KindItem {
		return nil, fail(ErrCodeOutOfDomain, a, "%q is a %s, not an item", item.ID, item.Kind)
	}

	slot, held := holder.Inventory[a.Item]
	if a.Remove {
		if !held {
			return nil, nil
		}
		delete(holder.Inventory, a.Item)
		return []world.Change{{
			Event: EventInventoryChanged, Target: holder.ID, Related: a.Item,
			Field: "charges", Before: ir.Int(slot.Charges),
		}}, nil
	}

	var changes []world.Change
	before := slot.Charges
	slot.Charges = p.floor(before+a.Delta, 0)
	if !held || slot.Charges != before {
		c := world.Change{
			Event: EventInventoryChanged, Target: holder.ID, Related: a.Item,
			Field: "charges", After: ir.Int(slot.Charges),
		}
		if held {
			c.Before = ir.Int(before)
		}
		changes = append(changes, c)
	}
	if a.Equip != nil && *a.Equip != slot.Equipped {
		changes = append(changes, world.Change{
			Event: EventInventoryChanged, Target: holder.ID, Related: a.Item,
			Field: "equipped", Before: ir.Bool(slot.Equipped), After: ir.Bool(*a.Equip),
		})
		slot.Equipped = *a.Equip
	}
	if holder.Inventory == nil {
		holder.Inventory = make(map[string]world.Slot)
	}
	holder.Inventory[a.Item] = slot
	return changes, nil
}
