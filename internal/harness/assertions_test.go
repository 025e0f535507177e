package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ags/internal/ir"
)

func TestLookupPointer(t *testing.T) {
	doc := ir.Object{
		"entities": ir.Object{
			"pc.arin": ir.Object{"tags": ir.Array{ir.String("brave")}},
		},
		"a/b": ir.Object{"~c": ir.Int(3)},
	}

	tests := []struct {
		pointer string
		want    ir.Value
		found   bool
	}{
		{"", doc, true},
		{"/entities/pc.arin/tags/0", ir.String("brave"), true},
		{"/a~1b/~0c", ir.Int(3), true},
		{"/entities/pc.arin/tags/1", nil, false},
		{"/entities/pc.arin/tags/x", nil, false},
		{"/entities/npc.spy", nil, false},
		{"/entities/pc.arin/tags/0/deeper", nil, false},
		{"entities", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.pointer, func(t *testing.T) {
			got, found := lookupPointer(doc, tt.pointer)
			require.Equal(t, tt.found, found)
			if found {
				assert.True(t, ir.Equal(tt.want, got))
			}
		})
	}
}

func TestAssertOrder(t *testing.T) {
	got := []string{"hp_changed", "tag_added", "guard_changed"}

	assert.NoError(t, assertOrder(got, []string{"hp_changed", "guard_changed"}))
	assert.NoError(t, assertOrder(got, got))
	assert.Error(t, assertOrder(got, []string{"guard_changed", "hp_changed"}))
	assert.Error(t, assertOrder(got, []string{"zone_changed"}))
	assert.Error(t, assertOrder(nil, []string{"hp_changed"}))
}
