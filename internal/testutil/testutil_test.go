package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicClock_Advances(t *testing.T) {
	c := NewDeterministicClock()
	assert.Equal(t, Epoch, c.Now())
	assert.Equal(t, Epoch.Add(time.Second), c.Now())
	assert.Equal(t, int64(2), c.Calls())

	c.Reset()
	assert.Equal(t, Epoch, c.Now())
}

func TestDeterministicClock_Concurrent(t *testing.T) {
	c := NewDeterministicClock()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Now()
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(50), c.Calls())
}

func TestSequenceGenerator(t *testing.T) {
	g := NewSequenceGenerator("")
	assert.Equal(t, "turn-0001", g.Generate())
	assert.Equal(t, "turn-0002", g.Generate())

	snap := NewSequenceGenerator("snap")
	assert.Equal(t, "snap-0001", snap.Generate())
}

func TestNewKeep(t *testing.T) {
	w := NewKeep()
	require.Len(t, w.Entities, 5)
	assert.Equal(t, "courtyard", w.Entities["pc.arin"].Zone)
	assert.Equal(t, 5, w.Entities["npc.guard.01"].Stats.HP)
	assert.True(t, w.Entities["npc.spy"].Meta.GMOnly())

	a, err := NewKeep().Hash()
	require.NoError(t, err)
	b, err := NewKeep().Hash()
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
