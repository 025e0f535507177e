package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ags/internal/effect"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "ags.db", cfg.DB)
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.Format)
	assert.Empty(t, cfg.Policy)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("AGS_DB", "/tmp/keep")
	t.Setenv("AGS_BACKEND", "pebble")
	t.Setenv("AGS_LOG_LEVEL", "debug")
	t.Setenv("AGS_POLICY", "table.cue")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/keep", cfg.DB)
	assert.Equal(t, BackendPebble, cfg.Backend)
	assert.Equal(t, "table.cue", cfg.Policy)

	level, err := ParseLevel(cfg.LogLevel)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"AGS_BACKEND":   "mongo",
		"AGS_FORMAT":    "xml",
		"AGS_LOG_LEVEL": "loud",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), value)
		})
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg struct {
		Port int `env:"AGS_TEST_PORT"`
	}
	t.Setenv("AGS_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "parse env:"))
}

func TestParsePolicy_Defaults(t *testing.T) {
	p, err := ParsePolicy([]byte(""), "empty.cue")
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), p)
}

func TestParsePolicy_Overrides(t *testing.T) {
	src := `
bounds: "reject"
exit_symmetry: true
max_reaction_effects: 4
hide_inventory_counts: true
`
	p, err := ParsePolicy([]byte(src), "table.cue")
	require.NoError(t, err)
	assert.Equal(t, effect.BoundsReject, p.Bounds)
	assert.True(t, p.ExitSymmetry)
	assert.Equal(t, 4, p.MaxReactionEffects)
	assert.Equal(t, 50, p.LogLimit)
	assert.True(t, p.Redaction().HideInventoryCounts)
	assert.True(t, p.CheckerOptions().ExitSymmetry)
	assert.Len(t, p.EngineOptions(), 5)
}

func TestParsePolicy_Rejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown bounds", `bounds: "wrap"`},
		{"unknown field", `speed: 3`},
		{"zero reaction cap", `max_reaction_effects: 0`},
		{"negative log limit", `log_limit: -1`},
		{"syntax", `bounds: `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePolicy([]byte(tt.src), "bad.cue")
			require.Error(t, err)
			var pe *PolicyError
			assert.ErrorAs(t, err, &pe)
		})
	}
}

func TestLoadPolicy_File(t *testing.T) {
	p, err := LoadPolicy("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), p)

	path := filepath.Join(t.TempDir(), "table.cue")
	require.NoError(t, os.WriteFile(path, []byte(`fear_guard_penalty: 2`), 0o644))
	p, err = LoadPolicy(path)
	require.NoError(t, err)
	assert.Equal(t, 2, p.FearGuardPenalty)

	_, err = LoadPolicy(filepath.Join(t.TempDir(), "missing.cue"))
	assert.Error(t, err)
}
