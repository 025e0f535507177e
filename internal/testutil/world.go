package testutil

import "github.com/roach88/ags/internal/world"

// Ptr returns a pointer to v. Handy for optional atom fields.
func Ptr[T any](v T) *T {
	return &v
}

// NewKeep builds the shared test world: a courtyard and a gatehouse joined
// by open arches, and a vault behind a blocked iron door.
//
//   - pc.arin (hp 8/8, guard 1) and npc.guard.01 (hp 5/10, guard 2) stand
//     in the courtyard with npc.spy, a gm_only creature.
//   - item.key lies in the gatehouse and is known to pc.arin.
//   - item.rope is unlocated, carried by pc.arin.
//   - the guard's favor toward arin starts at 0.
//   - clock.alarm is at 1/4.
func NewKeep() *world.World {
	w := world.New("keep")

	w.Zones["courtyard"] = &world.Zone{
		ID:          "courtyard",
		Name:        "Courtyard",
		Description: "Wet flagstones under a broken portcullis.",
		Exits:       []world.Exit{{To: "gatehouse", Label: "north arch"}},
		Tags:        world.NewSet("open-sky"),
		Meta:        world.Meta{Visibility: world.VisibilityPublic},
	}
	w.Zones["gatehouse"] = &world.Zone{
		ID:   "gatehouse",
		Name: "Gatehouse",
		Exits: []world.Exit{
			{To: "courtyard", Label: "south arch"},
			{To: "vault", Label: "iron door", Blocked: true},
		},
		Meta: world.Meta{Visibility: world.VisibilityPublic},
	}
	w.Zones["vault"] = &world.Zone{
		ID:    "vault",
		Name:  "Vault",
		Exits: []world.Exit{{To: "gatehouse"}},
		Meta:  world.Meta{Visibility: world.VisibilityHidden, KnownBy: world.NewSet("npc.guard.01")},
	}

	w.Entities["pc.arin"] = &world.Entity{
		ID:   "pc.arin",
		Kind: world.KindPC,
		Name: "Arin",
		Zone: "courtyard",
		Stats: &world.Stats{
			HP: 8, MaxHP: 8, Guard: 1,
			Resources: map[string]world.Resource{"stamina": {Current: 3, Max: 5}},
		},
		Inventory: map[string]world.Slot{"item.rope": {Charges: 1}},
		Meta:      world.Meta{Visibility: world.VisibilityPublic},
	}
	w.Entities["npc.guard.01"] = &world.Entity{
		ID:    "npc.guard.01",
		Kind:  world.KindNPC,
		Name:  "Gate Guard",
		Zone:  "courtyard",
		Tags:  world.NewSet("armored"),
		Stats: &world.Stats{HP: 5, MaxHP: 10, Guard: 2},
		Meta:  world.Meta{Visibility: world.VisibilityPublic, Notes: "bribable for 5 silver"},
	}
	w.Entities["npc.spy"] = &world.Entity{
		ID:    "npc.spy",
		Kind:  world.KindNPC,
		Name:  "Veiled Spy",
		Zone:  "courtyard",
		Stats: &world.Stats{HP: 4, MaxHP: 4},
		Meta:  world.Meta{Visibility: world.VisibilityGMOnly},
	}
	w.Entities["item.rope"] = &world.Entity{
		ID:   "item.rope",
		Kind: world.KindItem,
		Name: "Rope",
		Meta: world.Meta{Visibility: world.VisibilityPublic},
	}
	w.Entities["item.key"] = &world.Entity{
		ID:   "item.key",
		Kind: world.KindItem,
		Name: "Vault Key",
		Zone: "gatehouse",
		Meta: world.Meta{Visibility: world.VisibilityPublic, KnownBy: world.NewSet("pc.arin")},
	}

	rel := world.RelationshipID("npc.guard.01", "pc.arin", world.RelFavor)
	w.Relationships[rel] = &world.Relationship{
		ID:     rel,
		Source: "npc.guard.01",
		Target: "pc.arin",
		Kind:   world.RelFavor,
		Meta:   world.Meta{Visibility: world.VisibilityGMOnly},
	}

	w.Clocks["clock.alarm"] = &world.Clock{
		ID:    "clock.alarm",
		Name:  "Alarm",
		Value: 1,
		Max:   4,
		Meta:  world.Meta{Visibility: world.VisibilityPublic},
	}

	w.Scene.TurnOrder = []string{"pc.arin", "npc.guard.01"}
	w.Scene.Tags = map[string]string{"lighting": "dim"}
	w.Scene.Clocks = world.NewSet("clock.alarm")
	w.Meta.Source = world.SourceManual
	return w
}
