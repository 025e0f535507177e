package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ags/internal/testutil"
	"github.com/roach88/ags/internal/world"
)

const strikeYAML = `
actor: pc.arin
hint: Arin strikes the guard and the alarm creeps up
effects:
  - {kind: hp, target: npc.guard.01, delta: -2}
  - {kind: clock, target: clock.alarm, delta: 1}
`

// writeKeep writes the shared test world as JSON and returns its path.
func writeKeep(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keep.json")
	require.NoError(t, world.Save(path, testutil.NewKeep()))
	return path
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func decode(t *testing.T, out string) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp
}

func data(t *testing.T, out string) map[string]any {
	t.Helper()
	resp := decode(t, out)
	require.Equal(t, "ok", resp["status"], out)
	d, ok := resp["data"].(map[string]any)
	require.True(t, ok, out)
	return d
}

func TestWorkflow(t *testing.T) {
	backends := map[string]string{
		"sqlite": "keep.db",
		"pebble": "keep-pebble",
	}
	for backend, name := range backends {
		t.Run(backend, func(t *testing.T) {
			db := []string{"--db", filepath.Join(t.TempDir(), name), "--backend", backend}
			fixture := writeKeep(t)
			strike := writeFile(t, "strike.yaml", strikeYAML)

			out, err := execute(t, append([]string{"init", fixture, "--format", "json"}, db...)...)
			require.NoError(t, err)
			initData := data(t, out)
			assert.Equal(t, "keep", initData["world"])
			assert.Equal(t, float64(1), initData["snapshot"])

			out, err = execute(t, append([]string{"apply", strike, "--seed", "7", "--format", "json"}, db...)...)
			require.NoError(t, err)
			applied := data(t, out)
			assert.Equal(t, true, applied["committed"])
			assert.Equal(t, float64(1), applied["revision"])
			assert.Equal(t, "Arin strikes the guard and the alarm creeps up", applied["hint"])

			out, err = execute(t, append([]string{"state", "--observer", "pc.arin",
				"--entity", "npc.guard.01,npc.spy", "--format", "json"}, db...)...)
			require.NoError(t, err)
			state := data(t, out)
			assert.Equal(t, float64(1), state["revision"])
			entities := state["entities"].([]any)
			require.Len(t, entities, 2)
			assert.Equal(t, true, entities[0].(map[string]any)["visible"])
			assert.Equal(t, false, entities[1].(map[string]any)["visible"])

			out, err = execute(t, append([]string{"snapshot", "take", "--note", "after strike"}, db...)...)
			require.NoError(t, err)
			assert.Contains(t, out, "Took snapshot 2 at revision 1")

			out, err = execute(t, append([]string{"snapshot", "list"}, db...)...)
			require.NoError(t, err)
			assert.Contains(t, out, "init")
			assert.Contains(t, out, "after strike")

			out, err = execute(t, append([]string{"diff", "1"}, db...)...)
			require.NoError(t, err)
			assert.Contains(t, out, "~ /entities/npc.guard.01/stats/hp 5 -> 3")
			assert.Contains(t, out, "~ /clocks/clock.alarm/value 1 -> 2")

			out, err = execute(t, append([]string{"diff", "2"}, db...)...)
			require.NoError(t, err)
			assert.Equal(t, "No changes.\n", out)

			out, err = execute(t, append([]string{"replay", "--format", "json"}, db...)...)
			require.NoError(t, err)
			replayed := data(t, out)
			assert.Equal(t, true, replayed["matches"])
			assert.Equal(t, float64(1), replayed["applied"])
			assert.Equal(t, float64(1), replayed["revision"])
		})
	}
}

func TestApply_RejectModeRollsBack(t *testing.T) {
	db := []string{"--db", filepath.Join(t.TempDir(), "keep.db")}
	policy := writeFile(t, "table.cue", `bounds: "reject"`)
	crush := writeFile(t, "crush.json", `[{"kind": "hp", "target": "npc.guard.01", "delta": -999}]`)

	_, err := execute(t, append([]string{"init", writeKeep(t)}, db...)...)
	require.NoError(t, err)

	out, err := execute(t, append([]string{"apply", crush, "--config", policy}, db...)...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [ROLLED_BACK]")
	assert.Contains(t, out, "violation: hp_range(npc.guard.01)")

	out, err = execute(t, append([]string{"diff", "1"}, db...)...)
	require.NoError(t, err)
	assert.Equal(t, "No changes.\n", out)
}

func TestApply_ClampModeKnocksOut(t *testing.T) {
	db := []string{"--db", filepath.Join(t.TempDir(), "keep.db")}
	crush := writeFile(t, "crush.json", `[{"kind": "hp", "target": "npc.guard.01", "delta": -999}]`)

	_, err := execute(t, append([]string{"init", writeKeep(t)}, db...)...)
	require.NoError(t, err)

	out, err := execute(t, append([]string{"apply", crush, "--seed", "1"}, db...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Committed revision 1")
	assert.Contains(t, out, "reaction:")

	out, err = execute(t, append([]string{"diff", "1"}, db...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "/entities/npc.guard.01/stats/hp 5 -> 0")
	assert.Contains(t, out, "/entities/npc.guard.01/stats/guard 2 -> 0")

	_, err = execute(t, append([]string{"replay"}, db...)...)
	require.NoError(t, err)

	// A replay under a different bounds mode cannot reproduce the turn.
	policy := writeFile(t, "table.cue", `bounds: "reject"`)
	out, err = execute(t, append([]string{"replay", "--config", policy}, db...)...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "REPLAY_DIVERGED")
}

func TestApply_NonAdjacentPosition(t *testing.T) {
	db := []string{"--db", filepath.Join(t.TempDir(), "keep.db")}
	move := writeFile(t, "move.yaml", "- {kind: position, target: pc.arin, to: vault}\n")

	_, err := execute(t, append([]string{"init", writeKeep(t)}, db...)...)
	require.NoError(t, err)

	out, err := execute(t, append([]string{"apply", move, "--format", "json"}, db...)...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decode(t, out)
	assert.Equal(t, "error", resp["status"])
	details := resp["error"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, false, details["committed"])
	assert.Equal(t, "ILLEGAL_TRANSITION", details["error"].(map[string]any)["code"])
}

func TestApply_Errors(t *testing.T) {
	db := []string{"--db", filepath.Join(t.TempDir(), "keep.db")}
	good := writeFile(t, "good.yaml", strikeYAML)

	_, err := execute(t, append([]string{"apply", good}, db...)...)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "ags init")

	_, err = execute(t, append([]string{"init", writeKeep(t)}, db...)...)
	require.NoError(t, err)

	tests := map[string]string{
		"empty.json":   `{"effects": []}`,
		"unknown.json": `[{"kind": "hp", "target": "pc.arin", "damage": 3}]`,
		"broken.yaml":  "effects: [",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := execute(t, append([]string{"apply", writeFile(t, name, content)}, db...)...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}

func TestInit_Refusals(t *testing.T) {
	db := []string{"--db", filepath.Join(t.TempDir(), "keep.db")}

	_, err := execute(t, append([]string{"init", writeKeep(t)}, db...)...)
	require.NoError(t, err)

	_, err = execute(t, append([]string{"init", writeKeep(t)}, db...)...)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "already holds a world")
}

func TestInit_InvalidWorld(t *testing.T) {
	w := testutil.NewKeep()
	w.Entities["pc.arin"].Zone = "nowhere"
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, world.Save(path, w))
	db := []string{"--db", filepath.Join(t.TempDir(), "keep.db")}

	out, err := execute(t, append([]string{"init", path}, db...)...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "INVARIANT_VIOLATIONS")

	out, err = execute(t, append([]string{"init", path, "--force"}, db...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "standing violations: 1")
}

func TestSnapshotRestore(t *testing.T) {
	db := []string{"--db", filepath.Join(t.TempDir(), "keep.db")}
	strike := writeFile(t, "strike.yaml", strikeYAML)

	_, err := execute(t, append([]string{"init", writeKeep(t)}, db...)...)
	require.NoError(t, err)
	_, err = execute(t, append([]string{"apply", strike, "--seed", "3"}, db...)...)
	require.NoError(t, err)

	out, err := execute(t, append([]string{"snapshot", "restore", "1"}, db...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Restored snapshot 1 at revision 2")

	out, err = execute(t, append([]string{"diff", "1"}, db...)...)
	require.NoError(t, err)
	assert.Equal(t, "No changes.\n", out)

	_, err = execute(t, append([]string{"snapshot", "restore", "9"}, db...)...)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, append([]string{"snapshot", "restore", "zero"}, db...)...)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestState_RequiresScope(t *testing.T) {
	db := []string{"--db", filepath.Join(t.TempDir(), "keep.db")}
	_, err := execute(t, append([]string{"init", writeKeep(t)}, db...)...)
	require.NoError(t, err)

	_, err = execute(t, append([]string{"state", "--observer", "pc.arin"}, db...)...)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out, err := execute(t, append([]string{"state", "--observer", "pc.arin", "--zone", "courtyard", "--clocks"}, db...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Observer pc.arin at revision 0")
	assert.Contains(t, out, "entity npc.guard.01")
	assert.NotContains(t, out, "npc.spy")
	assert.Contains(t, out, "clock clock.alarm")
}

func TestValidate(t *testing.T) {
	out, err := execute(t, "validate", writeKeep(t))
	require.NoError(t, err)
	assert.Equal(t, "World keep is valid\n", out)

	w := testutil.NewKeep()
	w.Clocks["clock.alarm"].Value = 9
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, world.Save(path, w))

	out, err = execute(t, "validate", path, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	resp := decode(t, out)
	assert.Equal(t, "INVARIANT_VIOLATIONS", resp["error"].(map[string]any)["code"])

	_, err = execute(t, "validate", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidate_ExitSymmetryPolicy(t *testing.T) {
	w := testutil.NewKeep()
	w.Zones["gatehouse"].Exits = w.Zones["gatehouse"].Exits[1:]
	path := filepath.Join(t.TempDir(), "one-way.json")
	require.NoError(t, world.Save(path, w))

	_, err := execute(t, "validate", path)
	require.NoError(t, err)

	policy := writeFile(t, "table.cue", "exit_symmetry: true\n")
	_, err = execute(t, "validate", path, "--config", policy)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	bad := writeFile(t, "bad.cue", "exit_symmetry: 3\n")
	_, err = execute(t, "validate", path, "--config", bad)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
