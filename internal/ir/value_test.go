package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortedKeys_UTF16Order(t *testing.T) {
	// U+1F600 encodes as a surrogate pair (0xD83D...) which sorts before
	// U+FB01 (0xFB01) in UTF-16, but after it in UTF-8.
	obj := Object{
		"\U0001F600": Int(1),
		"\ufb01":     Int(2),
		"a":          Int(3),
	}
	assert.Equal(t, []string{"a", "\U0001F600", "\ufb01"}, obj.SortedKeys())
}

func TestDecode(t *testing.T) {
	v, err := Decode([]byte(`{"name":"Arin","hp":5,"tags":["a"],"zone":null,"ok":true}`))
	require.NoError(t, err)

	obj, ok := v.(Object)
	require.True(t, ok)
	assert.Equal(t, String("Arin"), obj["name"])
	assert.Equal(t, Int(5), obj["hp"])
	assert.Equal(t, Array{String("a")}, obj["tags"])
	assert.Equal(t, Bool(true), obj["ok"])
	_, hasZone := obj["zone"]
	assert.False(t, hasZone, "null members are dropped")
}

func TestDecode_RejectsFloats(t *testing.T) {
	_, err := Decode([]byte(`{"hp":1.5}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floats")
}

func TestEncodeObject(t *testing.T) {
	type rec struct {
		ID   string   `json:"id"`
		HP   int      `json:"hp"`
		Tags []string `json:"tags,omitempty"`
	}
	obj, err := EncodeObject(rec{ID: "pc.arin", HP: 7})
	require.NoError(t, err)
	assert.Equal(t, Object{"id": String("pc.arin"), "hp": Int(7)}, obj)

	_, err = EncodeObject([]int{1})
	require.Error(t, err)
}

func TestEqual(t *testing.T) {
	a := Object{"x": Array{Int(1), String("s")}, "y": Bool(false)}
	b := Object{"y": Bool(false), "x": Array{Int(1), String("s")}}
	assert.True(t, Equal(a, b))

	b["y"] = Bool(true)
	assert.False(t, Equal(a, b))
	assert.False(t, Equal(Int(1), String("1")))
	assert.True(t, Equal(Null{}, Null{}))
}

func TestObjectMarshalJSON_SortedKeys(t *testing.T) {
	data, err := Object{"b": Int(1), "a": Array{Null{}}}.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"a":[null],"b":1}`, string(data))
}
