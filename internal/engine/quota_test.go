package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ags/internal/effect"
	"github.com/roach88/ags/internal/testutil"
	"github.com/roach88/ags/internal/world"
)

func TestQuotaEnforcer_WithinLimit(t *testing.T) {
	q := NewQuotaEnforcer(3)
	for range 3 {
		require.NoError(t, q.Check("turn-1"))
	}
	assert.Equal(t, 3, q.Current())
	assert.Equal(t, 3, q.MaxSteps())
}

func TestQuotaEnforcer_ExceedsLimit(t *testing.T) {
	q := NewQuotaEnforcer(1)
	require.NoError(t, q.Check("turn-1"))

	err := q.Check("turn-1")
	require.Error(t, err)
	assert.True(t, IsStepsExceededError(err))
	assert.Equal(t, "turn turn-1 exceeded reaction effect limit: 2 effects > 1 limit", err.Error())

	q.Reset()
	assert.Equal(t, 0, q.Current())
	assert.NoError(t, q.Check("turn-1"))
}

func TestQuotaEnforcer_ZeroLimit(t *testing.T) {
	q := NewQuotaEnforcer(0)
	assert.True(t, IsStepsExceededError(q.Check("turn-1")))
}

func TestIsStepsExceededError(t *testing.T) {
	err := &StepsExceededError{TurnID: "turn-1", Steps: 5, Limit: 4}
	assert.True(t, IsStepsExceededError(err))
	assert.True(t, IsStepsExceededError(fmt.Errorf("reaction: %w", err)))
	assert.False(t, IsStepsExceededError(fmt.Errorf("reaction failed")))
	assert.False(t, IsStepsExceededError(nil))
}

func TestQuota_DefaultLimit(t *testing.T) {
	flood := NewRule("flood", func(ev Event, w *world.World) []effect.Atom {
		atoms := make([]effect.Atom, 0, DefaultMaxReactionEffects+5)
		for i := range DefaultMaxReactionEffects + 5 {
			atoms = append(atoms, effect.Atom{Kind: effect.KindMark, Target: "pc.arin", Mark: fmt.Sprintf("m%02d", i)})
		}
		return atoms
	})
	e := newTestEngine(t, testutil.NewKeep(), WithRules(flood))

	res := apply(t, e, effect.Atom{Kind: effect.KindClock, Target: "clock.alarm", Delta: 1})
	assert.Equal(t, 5, res.ReactionsDropped)
	require.NotNil(t, res.Reaction)
	assert.True(t, res.Reaction.Committed)
	assert.Len(t, e.Current().Entities["pc.arin"].Marks, DefaultMaxReactionEffects)
}
