package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(s)
			require.NoError(t, err)
			assert.Empty(t, result.Errors)
			assert.True(t, result.Pass)
			assert.NotEmpty(t, result.Hash)
		})
	}
}

func TestRunDeterministic(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/hp_overkill_clamp.yaml")
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	assert.Equal(t, first.Hash, second.Hash)
	assert.Equal(t, first.Events(), second.Events())
}

func TestRunReportsFailedExpectations(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: wrong_expectations
description: every expectation is wrong
world: keep
steps:
  - name: strike
    effects:
      - {kind: hp, target: npc.guard.01, delta: -1}
    expect:
      committed: false
      error: UNKNOWN_TARGET
      events: [clock_changed]
assertions:
  - type: world_field
    path: /entities/npc.guard.01/stats/hp
    equals: 5
  - type: disposition
    source: npc.guard.01
    target: pc.arin
    equals: ally
  - type: trace_count
    event: hp_changed
    count: 3
  - type: trace_contains
    event: round_advanced
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 7)
	assert.Contains(t, result.Errors[0], "committed = true, want false")
	assert.Contains(t, result.Errors[1], `error = "", want "UNKNOWN_TARGET"`)
	assert.Contains(t, result.Errors[2], "events = [hp_changed], want [clock_changed]")
	assert.Contains(t, result.Errors[3], "/entities/npc.guard.01/stats/hp = 4, want 5")
	assert.Contains(t, result.Errors[4], "as neutral, want ally")
	assert.Contains(t, result.Errors[5], "trace_count")
	assert.Contains(t, result.Errors[6], "no round_advanced event")
}

func TestRunRejectsBadPolicy(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: bad_policy
description: the policy does not validate
world: keep
policy:
  bounds: wrap
steps:
  - name: tick
    effects:
      - {kind: turn}
`))
	require.NoError(t, err)

	_, err = Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenario bad_policy")
}

func TestRunMissingWorldFile(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: no_world
description: the world file does not exist
world: missing.json
steps:
  - name: tick
    effects:
      - {kind: turn}
`))
	require.NoError(t, err)

	_, err = Run(s)
	require.Error(t, err)
}

func TestRunTraceMarksReactions(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/fear_and_rounds.yaml")
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	require.NotEmpty(t, result.Trace)

	assert.Equal(t, "mark_added", result.Trace[0].Event)
	assert.False(t, result.Trace[0].Reaction)
	assert.Equal(t, "guard_changed", result.Trace[1].Event)
	assert.True(t, result.Trace[1].Reaction)

	require.Len(t, result.Steps, 3)
	assert.Equal(t, int64(2), result.Steps[0].Reaction)
	assert.Equal(t, int64(4), result.Steps[2].Revision)
}
