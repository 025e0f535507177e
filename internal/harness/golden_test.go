package harness

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGoldenScenarios(t *testing.T) {
	scenarios := []string{
		"hp_overkill_clamp",
		"hp_overkill_reject",
		"position_not_adjacent",
		"relationship_hostile",
	}
	for _, name := range scenarios {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
			require.NoError(t, err)

			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			require.True(t, result.Pass)
		})
	}
}
