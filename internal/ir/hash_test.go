package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorldHash_Deterministic(t *testing.T) {
	doc := Object{
		"id":       String("w1"),
		"revision": Int(3),
		"entities": Object{"pc.arin": Object{"hp": Int(5)}},
	}

	h1, err := WorldHash(doc)
	require.NoError(t, err)
	h2, err := WorldHash(Object{
		"entities": Object{"pc.arin": Object{"hp": Int(5)}},
		"revision": Int(3),
		"id":       String("w1"),
	})
	require.NoError(t, err)

	assert.Equal(t, h1, h2, "key order must not affect the hash")
	assert.Len(t, h1, 64)
}

func TestHash_DomainSeparation(t *testing.T) {
	doc := Object{"id": String("w1")}

	world, err := Hash(DomainWorld, doc)
	require.NoError(t, err)
	other, err := Hash("ags/other/v1", doc)
	require.NoError(t, err)

	assert.NotEqual(t, world, other)
}

func TestWorldHash_RejectsNull(t *testing.T) {
	_, err := WorldHash(Object{"x": Null{}})
	assert.Error(t, err)
}
