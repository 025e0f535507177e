package visibility

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ags/internal/ir"
	"github.com/roach88/ags/internal/testutil"
	"github.com/roach88/ags/internal/world"
)

type fixedSource struct {
	w atomic.Pointer[world.World]
}

func newSource(w *world.World) *fixedSource {
	s := &fixedSource{}
	s.w.Store(w)
	return s
}

func (s *fixedSource) Current() *world.World { return s.w.Load() }

func ids(ps []Projection) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

func TestGetState_Unbounded(t *testing.T) {
	svc := NewService(newSource(testutil.NewKeep()), Policy{}, nil)
	_, err := svc.GetState(ProjectionSpec{Observer: "pc.arin"})
	assert.ErrorIs(t, err, ErrUnboundedQuery)
}

func TestGetState_EntityIDs(t *testing.T) {
	svc := NewService(newSource(testutil.NewKeep()), Policy{}, nil)

	st, err := svc.GetState(ProjectionSpec{
		Observer:  "pc.arin",
		EntityIDs: []string{"npc.guard.01", "npc.spy", "npc.ghost"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"npc.guard.01", "npc.spy"}, ids(st.Entities), "unknown ids are absent")
	assert.True(t, st.Entities[0].Visible)
	assert.False(t, st.Entities[1].Visible)
	assert.Equal(t, 1, st.Round)
	assert.Equal(t, "pc.arin", st.Actor)
}

func TestGetState_ZoneFilter(t *testing.T) {
	svc := NewService(newSource(testutil.NewKeep()), Policy{}, nil)

	st, err := svc.GetState(ProjectionSpec{Observer: "pc.arin", Zone: "courtyard", Clocks: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"npc.guard.01", "pc.arin"}, ids(st.Entities), "invisible occupants are left out")
	require.NotNil(t, st.Zone)
	assert.Equal(t, "Courtyard", st.Zone.Name)
	assert.Equal(t, []string{"clock.alarm"}, ids(st.Clocks))

	st, err = svc.GetState(ProjectionSpec{Observer: "pc.arin", Zone: "courtyard", EntityIDs: []string{"item.key", "pc.arin"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"pc.arin"}, ids(st.Entities), "visible but elsewhere")
}

func TestGetState_FieldAllowList(t *testing.T) {
	svc := NewService(newSource(testutil.NewKeep()), Policy{}, NewCache())

	st, err := svc.GetState(ProjectionSpec{Observer: "pc.arin", EntityIDs: []string{"npc.guard.01"}, Fields: []string{FieldStats}})
	require.NoError(t, err)
	require.Len(t, st.Entities, 1)
	assert.Equal(t, []string{FieldStats}, st.Entities[0].Fields.SortedKeys())

	cached, ok := svc.Cache().Get("pc.arin", "npc.guard.01")
	require.True(t, ok)
	assert.Len(t, cached.Fields, len(EntityFields), "filtering leaves the cached projection whole")

	_, err = svc.GetState(ProjectionSpec{Observer: "pc.arin", EntityIDs: []string{"pc.arin"}, Fields: []string{"notes"}})
	assert.Error(t, err)
}

func TestGetState_CacheInvalidation(t *testing.T) {
	src := newSource(testutil.NewKeep())
	svc := NewService(src, Policy{}, NewCache())
	spec := ProjectionSpec{Observer: "pc.arin", EntityIDs: []string{"npc.guard.01"}}

	_, err := svc.GetState(spec)
	require.NoError(t, err)

	next := src.Current().Clone()
	next.Entities["npc.guard.01"].Stats.HP = 0
	src.w.Store(next)

	st, err := svc.GetState(spec)
	require.NoError(t, err)
	assert.Equal(t, ir.Int(5), st.Entities[0].Fields[FieldStats].(ir.Object)["hp"], "served from cache until invalidated")

	svc.Invalidate(next, world.Change{Event: "hp_changed", Target: "npc.guard.01"})
	st, err = svc.GetState(spec)
	require.NoError(t, err)
	assert.Equal(t, ir.Int(0), st.Entities[0].Fields[FieldStats].(ir.Object)["hp"])
}

func TestCache_ZoneChangeDropsObserverViews(t *testing.T) {
	w := testutil.NewKeep()
	c := NewCache()
	r := NewRedactor(Policy{})
	for _, obs := range []string{"pc.arin", "npc.guard.01"} {
		for _, id := range []string{"npc.guard.01", "item.key", "pc.arin"} {
			require.True(t, c.Put(obs, r.Redact(obs, w.Entities[id], w), c.Generation()))
		}
		require.True(t, c.Put(obs, r.Redact(obs, w.Zones["gatehouse"], w), c.Generation()))
	}
	require.Equal(t, 8, c.Len())

	c.Invalidate(w, world.Change{Event: "zone_changed", Target: "pc.arin", Before: ir.String("courtyard"), After: ir.String("gatehouse")})

	_, ok := c.Get("npc.guard.01", "npc.guard.01")
	assert.True(t, ok, "unrelated view survives")
	_, ok = c.Get("npc.guard.01", "item.key")
	assert.True(t, ok)
	_, ok = c.Get("pc.arin", "item.key")
	assert.False(t, ok, "the mover's views are dropped")
	_, ok = c.Get("npc.guard.01", "pc.arin")
	assert.False(t, ok, "views of the mover are dropped")
	_, ok = c.Get("npc.guard.01", "gatehouse")
	assert.False(t, ok, "occupants of the destination changed")
	assert.Equal(t, 2, c.Len())
}

func TestCache_StalePutIgnored(t *testing.T) {
	w := testutil.NewKeep()
	c := NewCache()
	gen := c.Generation()
	c.Invalidate(w, world.Change{Event: "hp_changed", Target: "npc.guard.01"})

	assert.False(t, c.Put("pc.arin", NewRedactor(Policy{}).Redact("pc.arin", w.Entities["npc.guard.01"], w), gen))
	assert.Zero(t, c.Len())

	c.Put("pc.arin", NewRedactor(Policy{}).Redact("pc.arin", w.Entities["pc.arin"], w), c.Generation())
	c.Invalidate(nil, world.Change{Event: world.EventWorldReset})
	assert.Zero(t, c.Len())
}

func TestGetState_ItemVisibilityDropsHolderViews(t *testing.T) {
	src := newSource(testutil.NewKeep())
	svc := NewService(src, Policy{}, NewCache())
	spec := ProjectionSpec{Observer: "npc.guard.01", EntityIDs: []string{"pc.arin"}}

	st, err := svc.GetState(spec)
	require.NoError(t, err)
	require.Len(t, st.Entities[0].Fields[FieldInventory], 1)

	next := src.Current().Clone()
	next.Entities["item.rope"].Meta.Visibility = world.VisibilityGMOnly
	src.w.Store(next)
	svc.Invalidate(next, world.Change{Event: "visibility_changed", Target: "item.rope"})

	_, ok := svc.Cache().Get("npc.guard.01", "pc.arin")
	assert.False(t, ok, "the holder's projection lists the item")
	st, err = svc.GetState(spec)
	require.NoError(t, err)
	assert.Empty(t, st.Entities[0].Fields[FieldInventory])
}
