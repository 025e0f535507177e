package snapshot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ags/internal/testutil"
	"github.com/roach88/ags/internal/world"
)

func keepSnapshot(t *testing.T, id int64) *Snapshot {
	t.Helper()
	w := testutil.NewKeep()
	hash, err := w.Hash()
	require.NoError(t, err)
	return &Snapshot{
		Info:  Info{ID: id, Revision: w.Revision, Round: w.Scene.Round, Note: "keep", Hash: hash, TakenAt: "2024-01-01T12:00:00Z"},
		World: w,
	}
}

func TestEncodeDecode(t *testing.T) {
	s := keepSnapshot(t, 3)

	data, err := Encode(s)
	require.NoError(t, err)
	got, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, s.Info, got.Info)
	hash, err := got.World.Hash()
	require.NoError(t, err)
	assert.Equal(t, s.Hash, hash)
}

func TestDecode_DetectsCorruption(t *testing.T) {
	s := keepSnapshot(t, 1)
	s.Hash = "bogus"

	data, err := Encode(s)
	require.NoError(t, err)
	_, err = Decode(data)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestDiff_IgnoresBookkeeping(t *testing.T) {
	before := testutil.NewKeep()
	after := before.Clone()
	after.Revision = 9
	after.Scene.Log = append(after.Scene.Log, world.LogEntry{TurnID: "t1"})

	d, err := Diff(before, after)
	require.NoError(t, err)
	assert.True(t, d.Empty(), "revision and scene log are not facts: %v", d.Paths())

	after.Clocks["clock.alarm"].Value = 3
	delete(after.Entities, "item.key")
	d, err = Diff(before, after)
	require.NoError(t, err)
	assert.Equal(t, []string{"/clocks/clock.alarm/value", "/entities/item.key"}, d.Paths())
}

func TestMemoryBackend_WriteOnce(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()

	require.NoError(t, b.WriteSnapshot(ctx, keepSnapshot(t, 1)))
	assert.ErrorIs(t, b.WriteSnapshot(ctx, keepSnapshot(t, 1)), ErrExists)

	_, err := b.ReadSnapshot(ctx, 2)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := b.ReadSnapshot(ctx, 1)
	require.NoError(t, err)
	got.World.Entities["pc.arin"].Stats.HP = 1
	again, err := b.ReadSnapshot(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 8, again.World.Entities["pc.arin"].Stats.HP, "reads return copies")
}

func TestMemoryBackend_World(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()

	_, err := b.LoadWorld(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, b.SaveWorld(ctx, testutil.NewKeep()))
	w, err := b.LoadWorld(ctx)
	require.NoError(t, err)
	assert.Equal(t, "keep", w.ID)
}
