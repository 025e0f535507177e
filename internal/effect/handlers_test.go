package effect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ags/internal/ir"
	"github.com/roach88/ags/internal/testutil"
	"github.com/roach88/ags/internal/world"
)

var (
	clamp  = Policy{Bounds: BoundsClamp, Now: "2024-01-01T12:00:00Z"}
	reject = Policy{Bounds: BoundsReject}
)

func apply(t *testing.T, w *world.World, a Atom, p Policy) []world.Change {
	t.Helper()
	changes, err := NewRegistry().Apply(w, a, p)
	require.NoError(t, err)
	return changes
}

func applyErr(t *testing.T, w *world.World, a Atom, code HandlerErrorCode) {
	t.Helper()
	_, err := NewRegistry().Apply(w, a, DefaultPolicy())
	require.Error(t, err)
	he, ok := AsHandlerError(err)
	require.True(t, ok, "expected HandlerError, got %v", err)
	assert.Equal(t, code, he.Code, he.Error())
}

func TestHP(t *testing.T) {
	t.Run("clamp to zero", func(t *testing.T) {
		w := testutil.NewKeep()
		changes := apply(t, w, Atom{Kind: KindHP, Target: "npc.guard.01", Delta: -999}, clamp)
		require.Len(t, changes, 1)
		assertIntChange(t, changes[0], EventHPChanged, "npc.guard.01", 5, 0)
		assert.Equal(t, 0, w.Entities["npc.guard.01"].Stats.HP)
	})

	t.Run("clamp to max", func(t *testing.T) {
		w := testutil.NewKeep()
		apply(t, w, Atom{Kind: KindHP, Target: "npc.guard.01", Delta: 50}, clamp)
		assert.Equal(t, 10, w.Entities["npc.guard.01"].Stats.HP)
	})

	t.Run("reject writes raw value", func(t *testing.T) {
		w := testutil.NewKeep()
		apply(t, w, Atom{Kind: KindHP, Target: "npc.guard.01", Delta: -999}, reject)
		assert.Equal(t, -994, w.Entities["npc.guard.01"].Stats.HP)
	})

	t.Run("no-op produces no change", func(t *testing.T) {
		w := testutil.NewKeep()
		assert.Empty(t, apply(t, w, Atom{Kind: KindHP, Target: "pc.arin", Delta: 3}, clamp))
	})

	t.Run("errors", func(t *testing.T) {
		w := testutil.NewKeep()
		applyErr(t, w, Atom{Kind: KindHP, Target: "nobody", Delta: -1}, ErrCodeUnknownTarget)
		applyErr(t, w, Atom{Kind: KindHP, Target: "item.key", Delta: -1}, ErrCodeOutOfDomain)
		applyErr(t, w, Atom{Kind: KindHP, Delta: -1}, ErrCodeInvalidAtom)
		applyErr(t, w, Atom{Kind: KindHP, Target: "pc.arin", Dice: "1d6"}, ErrCodeInvalidAtom)
	})
}

func TestResource(t *testing.T) {
	w := testutil.NewKeep()
	changes := apply(t, w, Atom{Kind: KindResource, Target: "pc.arin", Resource: "stamina", Delta: -5}, clamp)
	require.Len(t, changes, 1)
	assertIntChange(t, changes[0], EventResourceChanged, "pc.arin", 3, 0)
	assert.Equal(t, "stamina", changes[0].Field)

	applyErr(t, w, Atom{Kind: KindResource, Target: "pc.arin", Resource: "mana", Delta: 1}, ErrCodeUnknownTarget)
	applyErr(t, w, Atom{Kind: KindResource, Target: "pc.arin", Delta: 1}, ErrCodeInvalidAtom)
}

func TestGuard(t *testing.T) {
	w := testutil.NewKeep()

	changes := apply(t, w, Atom{Kind: KindGuard, Target: "pc.arin", Delta: 2, Duration: 2}, clamp)
	require.Len(t, changes, 2)
	assertIntChange(t, changes[0], EventGuardChanged, "pc.arin", 1, 3)
	assert.Equal(t, "guard_duration", changes[1].Field)
	assert.Equal(t, 2, w.Entities["pc.arin"].Stats.GuardDuration)

	apply(t, w, Atom{Kind: KindGuard, Target: "pc.arin", Delta: -10}, clamp)
	assert.Equal(t, 0, w.Entities["pc.arin"].Stats.Guard)
	assert.Equal(t, 0, w.Entities["pc.arin"].Stats.GuardDuration, "guard at zero clears its duration")

	applyErr(t, w, Atom{Kind: KindGuard, Target: "pc.arin", Duration: -1}, ErrCodeOutOfDomain)
}

func TestMark(t *testing.T) {
	w := testutil.NewKeep()

	changes := apply(t, w, Atom{Kind: KindMark, Target: "npc.guard.01", Mark: "fear"}, clamp)
	require.Len(t, changes, 1)
	assert.Equal(t, EventMarkAdded, changes[0].Event)
	assert.Equal(t, ir.String("fear"), changes[0].After)

	assert.Empty(t, apply(t, w, Atom{Kind: KindMark, Target: "npc.guard.01", Mark: "fear"}, clamp), "adding twice is a no-op")

	changes = apply(t, w, Atom{Kind: KindMark, Target: "npc.guard.01", Mark: "fear", Remove: true}, clamp)
	require.Len(t, changes, 1)
	assert.Equal(t, EventMarkRemoved, changes[0].Event)
	assert.False(t, w.Entities["npc.guard.01"].Marks.Has("fear"))

	applyErr(t, w, Atom{Kind: KindMark, Target: "npc.guard.01"}, ErrCodeInvalidAtom)
}

func TestInventory(t *testing.T) {
	w := testutil.NewKeep()

	changes := apply(t, w, Atom{Kind: KindInventory, Target: "pc.arin", Item: "item.key", Delta: 1, Equip: testutil.Ptr(true)}, clamp)
	require.Len(t, changes, 2)
	assert.Nil(t, changes[0].Before, "new slot has no before value")
	assert.Equal(t, world.Slot{Charges: 1, Equipped: true}, w.Entities["pc.arin"].Inventory["item.key"])

	apply(t, w, Atom{Kind: KindInventory, Target: "pc.arin", Item: "item.rope", Delta: -5}, clamp)
	assert.Equal(t, 0, w.Entities["pc.arin"].Inventory["item.rope"].Charges)

	apply(t, w, Atom{Kind: KindInventory, Target: "pc.arin", Item: "item.rope", Remove: true}, clamp)
	assert.NotContains(t, w.Entities["pc.arin"].Inventory, "item.rope")

	applyErr(t, w, Atom{Kind: KindInventory, Target: "item.key", Item: "item.rope"}, ErrCodeOutOfDomain)
	applyErr(t, w, Atom{Kind: KindInventory, Target: "pc.arin", Item: "npc.spy"}, ErrCodeOutOfDomain)
	applyErr(t, w, Atom{Kind: KindInventory, Target: "pc.arin", Item: "item.none"}, ErrCodeUnknownTarget)
}

func TestPosition(t *testing.T) {
	t.Run("adjacent move", func(t *testing.T) {
		w := testutil.NewKeep()
		changes := apply(t, w, Atom{Kind: KindPosition, Target: "pc.arin", To: "gatehouse"}, clamp)
		require.Len(t, changes, 1)
		assert.Equal(t, EventZoneChanged, changes[0].Event)
		assert.Equal(t, "courtyard", changes[0].BeforeString())
		assert.Equal(t, "gatehouse", changes[0].AfterString())
		assert.Equal(t, "gatehouse", w.Entities["pc.arin"].Zone)
	})

	t.Run("non-adjacent zone", func(t *testing.T) {
		applyErr(t, testutil.NewKeep(), Atom{Kind: KindPosition, Target: "pc.arin", To: "vault"}, ErrCodeIllegalTransition)
	})

	t.Run("blocked exit", func(t *testing.T) {
		w := testutil.NewKeep()
		w.Entities["pc.arin"].Zone = "gatehouse"
		applyErr(t, w, Atom{Kind: KindPosition, Target: "pc.arin", To: "vault"}, ErrCodeIllegalTransition)
	})

	t.Run("unknown zone", func(t *testing.T) {
		applyErr(t, testutil.NewKeep(), Atom{Kind: KindPosition, Target: "pc.arin", To: "moon"}, ErrCodeUnknownTarget)
	})

	t.Run("unlocated entity is placed anywhere", func(t *testing.T) {
		w := testutil.NewKeep()
		apply(t, w, Atom{Kind: KindPosition, Target: "item.rope", To: "vault"}, clamp)
		assert.Equal(t, "vault", w.Entities["item.rope"].Zone)
	})

	t.Run("remove leaves the zone", func(t *testing.T) {
		w := testutil.NewKeep()
		changes := apply(t, w, Atom{Kind: KindPosition, Target: "item.key", Remove: true}, clamp)
		require.Len(t, changes, 1)
		assert.Nil(t, changes[0].After)
		assert.False(t, w.Entities["item.key"].Located())
	})
}

func TestExit(t *testing.T) {
	w := testutil.NewKeep()
	changes := apply(t, w, Atom{Kind: KindExit, Target: "gatehouse", To: "vault", Blocked: testutil.Ptr(false)}, clamp)
	require.Len(t, changes, 1)
	assert.Equal(t, ir.Bool(true), changes[0].Before)
	assert.True(t, w.Zones["gatehouse"].Adjacent("vault"))

	applyErr(t, w, Atom{Kind: KindExit, Target: "courtyard", To: "vault", Blocked: testutil.Ptr(true)}, ErrCodeUnknownTarget)
	applyErr(t, w, Atom{Kind: KindExit, Target: "gatehouse", To: "vault"}, ErrCodeInvalidAtom)
}

func TestTag(t *testing.T) {
	w := testutil.NewKeep()

	apply(t, w, Atom{Kind: KindTag, Target: "pc.arin", Tag: "stealthed"}, clamp)
	assert.True(t, w.Entities["pc.arin"].Tags.Has("stealthed"))

	apply(t, w, Atom{Kind: KindTag, Target: "courtyard", Tag: "open-sky", Remove: true}, clamp)
	assert.False(t, w.Zones["courtyard"].Tags.Has("open-sky"))

	changes := apply(t, w, Atom{Kind: KindTag, Target: world.SceneID, Key: "lighting", Value: "dark"}, clamp)
	require.Len(t, changes, 1)
	assert.Equal(t, ir.String("dim"), changes[0].Before)
	assert.Equal(t, "dark", w.Scene.Tags["lighting"])

	apply(t, w, Atom{Kind: KindTag, Target: world.SceneID, Key: "lighting", Remove: true}, clamp)
	assert.NotContains(t, w.Scene.Tags, "lighting")

	applyErr(t, w, Atom{Kind: KindTag, Target: "clock.alarm", Tag: "x"}, ErrCodeUnknownTarget)
	applyErr(t, w, Atom{Kind: KindTag, Target: world.SceneID}, ErrCodeInvalidAtom)
}

func TestRevealAndVisibility(t *testing.T) {
	w := testutil.NewKeep()

	changes := apply(t, w, Atom{Kind: KindReveal, Target: "vault", Observer: "pc.arin"}, clamp)
	require.Len(t, changes, 1)
	assert.Equal(t, "pc.arin", changes[0].Related)
	assert.True(t, w.Zones["vault"].Meta.Knows("pc.arin"))
	assert.Equal(t, clamp.Now, w.Zones["vault"].Meta.ChangedAt)

	apply(t, w, Atom{Kind: KindVisibility, Target: "npc.spy", Level: world.VisibilityPublic}, clamp)
	assert.False(t, w.Entities["npc.spy"].Meta.GMOnly())

	applyErr(t, w, Atom{Kind: KindVisibility, Target: "npc.spy", Level: "secret"}, ErrCodeOutOfDomain)
	applyErr(t, w, Atom{Kind: KindReveal, Target: "nowhere", Observer: "pc.arin"}, ErrCodeUnknownTarget)
}

func TestRelationship(t *testing.T) {
	w := testutil.NewKeep()

	changes := apply(t, w, Atom{Kind: KindRelationship, Source: "npc.guard.01", Target: "pc.arin", RelKind: world.RelFavor, Set: testutil.Ptr(-3)}, clamp)
	require.Len(t, changes, 1)
	assertIntChange(t, changes[0], EventRelationshipChanged, "npc.guard.01->pc.arin:favor", 0, -3)
	assert.Equal(t, world.Hostile, w.Disposition("npc.guard.01", "pc.arin"))

	changes = apply(t, w, Atom{Kind: KindRelationship, Source: "pc.arin", Target: "npc.guard.01", RelKind: world.RelFear, Delta: 20}, clamp)
	require.Len(t, changes, 1)
	assert.Nil(t, changes[0].Before, "edge was created")
	edge := w.Relationships["pc.arin->npc.guard.01:fear"]
	require.NotNil(t, edge)
	assert.Equal(t, world.MaxRelValue, edge.Value)
	assert.True(t, edge.Meta.GMOnly())

	applyErr(t, w, Atom{Kind: KindRelationship, Source: "pc.arin", Target: "pc.arin", RelKind: world.RelBond}, ErrCodeOutOfDomain)
	applyErr(t, w, Atom{Kind: KindRelationship, Source: "pc.arin", Target: "npc.guard.01", RelKind: "love"}, ErrCodeOutOfDomain)
	applyErr(t, w, Atom{Kind: KindRelationship, Source: "pc.arin", Target: "ghost", RelKind: world.RelBond}, ErrCodeUnknownTarget)
}

func TestClock(t *testing.T) {
	w := testutil.NewKeep()

	apply(t, w, Atom{Kind: KindClock, Target: "clock.alarm", Delta: 10}, clamp)
	assert.Equal(t, 4, w.Clocks["clock.alarm"].Value)

	changes := apply(t, w, Atom{Kind: KindClock, Target: "clock.ritual", Name: "Ritual", Max: 6, Delta: 2}, clamp)
	require.Len(t, changes, 2)
	assert.Equal(t, 2, w.Clocks["clock.ritual"].Value)
	assert.True(t, w.Scene.Clocks.Has("clock.ritual"))

	apply(t, w, Atom{Kind: KindClock, Target: "clock.alarm", Delta: 3}, reject)
	assert.Equal(t, 7, w.Clocks["clock.alarm"].Value)

	applyErr(t, w, Atom{Kind: KindClock, Target: "clock.none", Delta: 1}, ErrCodeUnknownTarget)
}

func TestTurn(t *testing.T) {
	w := testutil.NewKeep()
	w.Entities["pc.arin"].Stats.GuardDuration = 1

	changes := apply(t, w, Atom{Kind: KindTurn}, clamp)
	require.Len(t, changes, 1)
	assert.Equal(t, "npc.guard.01", w.Scene.CurrentActor())
	assert.Equal(t, 1, w.Scene.Round)

	changes = apply(t, w, Atom{Kind: KindTurn}, clamp)
	assert.Equal(t, "pc.arin", w.Scene.CurrentActor())
	assert.Equal(t, 2, w.Scene.Round)

	events := make([]string, 0, len(changes))
	for _, c := range changes {
		events = append(events, c.Event+":"+c.Field)
	}
	assert.Equal(t, []string{
		"turn_advanced:turn_index",
		"round_advanced:round",
		"guard_changed:guard_duration",
		"guard_changed:guard",
	}, events)
	assert.Equal(t, 0, w.Entities["pc.arin"].Stats.Guard, "timed guard expires at round end")
}

func TestSchedule(t *testing.T) {
	w := testutil.NewKeep()

	changes := apply(t, w, Atom{Kind: KindSchedule, Delay: 2, Effect: &Atom{Kind: KindClock, Target: "clock.alarm", Delta: 1}}, clamp)
	require.Len(t, changes, 1)
	require.Len(t, w.Scene.PendingEffects, 1)
	pe := w.Scene.PendingEffects[0]
	assert.Equal(t, "pending.1", pe.ID)
	assert.Equal(t, 3, pe.DueRound)

	scheduled, err := Unmarshal(pe.Effect)
	require.NoError(t, err)
	assert.Equal(t, Atom{Kind: KindClock, Target: "clock.alarm", Delta: 1}, scheduled)

	apply(t, w, Atom{Kind: KindSchedule, ID: "pending.1", Remove: true}, clamp)
	assert.Empty(t, w.Scene.PendingEffects)

	applyErr(t, w, Atom{Kind: KindSchedule, Delay: 0, Effect: &Atom{Kind: KindTurn}}, ErrCodeOutOfDomain)
	applyErr(t, w, Atom{Kind: KindSchedule, Delay: 1, Effect: &Atom{Kind: KindSchedule}}, ErrCodeOutOfDomain)
	applyErr(t, w, Atom{Kind: KindSchedule, ID: "pending.9", Remove: true}, ErrCodeUnknownTarget)
}

func TestChoice(t *testing.T) {
	w := testutil.NewKeep()
	apply(t, w, Atom{Kind: KindChoice, Prompt: "Which door?", Options: []string{"north", "east"}, Actor: "pc.arin"}, clamp)
	require.NotNil(t, w.Scene.PendingChoice)
	assert.Equal(t, []string{"north", "east"}, w.Scene.PendingChoice.Options)

	changes := apply(t, w, Atom{Kind: KindChoice, Remove: true}, clamp)
	require.Len(t, changes, 1)
	assert.Nil(t, w.Scene.PendingChoice)

	applyErr(t, w, Atom{Kind: KindChoice}, ErrCodeInvalidAtom)
}

func TestSpawn(t *testing.T) {
	w := testutil.NewKeep()
	rat := &world.Entity{
		ID:    "npc.rat",
		Kind:  world.KindNPC,
		Name:  "Rat",
		Zone:  "courtyard",
		Tags:  world.Set{"small", "small"},
		Stats: &world.Stats{HP: 1, MaxHP: 1},
	}

	changes := apply(t, w, Atom{Kind: KindSpawn, Entity: rat}, clamp)
	require.Len(t, changes, 2)
	assert.Equal(t, EventEntitySpawned, changes[0].Event)
	assert.Equal(t, EventZoneChanged, changes[1].Event)

	got := w.Entities["npc.rat"]
	require.NotNil(t, got)
	assert.Equal(t, world.Set{"small"}, got.Tags)
	assert.Equal(t, clamp.Now, got.Meta.CreatedAt)
	assert.Equal(t, world.SourceGenerated, got.Meta.Source)
	assert.NotSame(t, rat, got, "the atom's entity is copied")

	applyErr(t, w, Atom{Kind: KindSpawn, Entity: rat}, ErrCodeIllegalTransition)
	applyErr(t, w, Atom{Kind: KindSpawn, Entity: &world.Entity{ID: "npc.x", Kind: world.KindNPC}}, ErrCodeOutOfDomain)
	applyErr(t, w, Atom{Kind: KindSpawn, Entity: &world.Entity{ID: "x", Kind: "dragon"}}, ErrCodeOutOfDomain)
	applyErr(t, w, Atom{Kind: KindSpawn, Entity: &world.Entity{ID: "item.x", Kind: world.KindItem, Zone: "moon"}}, ErrCodeUnknownTarget)
}

func TestRemove(t *testing.T) {
	w := testutil.NewKeep()
	w.Scene.TurnIndex = 1

	changes := apply(t, w, Atom{Kind: KindRemove, Target: "pc.arin"}, clamp)

	assert.NotContains(t, w.Entities, "pc.arin")
	edge := w.Relationships["npc.guard.01->pc.arin:favor"]
	assert.True(t, edge.Tombstoned, "edges are tombstoned, not deleted")
	assert.Equal(t, []string{"npc.guard.01"}, w.Scene.TurnOrder)
	assert.Equal(t, 0, w.Scene.TurnIndex)
	assert.Equal(t, "npc.guard.01", w.Scene.CurrentActor())

	events := make([]string, 0, len(changes))
	for _, c := range changes {
		events = append(events, c.Event)
	}
	assert.Equal(t, []string{EventEntityRemoved, EventZoneChanged, EventRelationshipChanged, EventTurnAdvanced}, events)

	changes = apply(t, w, Atom{Kind: KindRemove, Target: "item.rope"}, clamp)
	assert.Len(t, changes, 1)

	applyErr(t, w, Atom{Kind: KindRemove, Target: "pc.arin"}, ErrCodeUnknownTarget)
}

func TestRemove_DropsInventorySlots(t *testing.T) {
	w := testutil.NewKeep()
	changes := apply(t, w, Atom{Kind: KindRemove, Target: "item.rope"}, clamp)
	require.Len(t, changes, 2)
	assert.Equal(t, EventInventoryChanged, changes[1].Event)
	assert.NotContains(t, w.Entities["pc.arin"].Inventory, "item.rope")
}
