package dice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Expr
	}{
		{"2d6", Expr{Count: 2, Sides: 6}},
		{"d20", Expr{Count: 1, Sides: 20}},
		{"1d8+2", Expr{Count: 1, Sides: 8, Modifier: 2}},
		{"3d4-1", Expr{Count: 3, Sides: 4, Modifier: -1}},
		{"-2d6", Expr{Negative: true, Count: 2, Sides: 6}},
		{" 1 D 10 ", Expr{Count: 1, Sides: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse("")
	assert.ErrorIs(t, err, ErrEmptyExpr)

	for _, in := range []string{"6", "xd6", "2dx", "0d6", "2d0", "1d6+x", "1000d6"} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrInvalidExpr, in)
	}
}

func TestExpr_String(t *testing.T) {
	assert.Equal(t, "-2d6+1", Expr{Negative: true, Count: 2, Sides: 6, Modifier: 1}.String())
	assert.Equal(t, "1d4-1", Expr{Count: 1, Sides: 4, Modifier: -1}.String())
}

func TestRoller_Deterministic(t *testing.T) {
	a := NewRoller(42)
	b := NewRoller(42)

	for _, expr := range []string{"2d6", "1d20+3", "-1d8"} {
		ra, err := a.Roll(expr)
		require.NoError(t, err)
		rb, err := b.Roll(expr)
		require.NoError(t, err)
		assert.Equal(t, ra, rb)
	}
	assert.Equal(t, int64(42), a.Seed())
}

func TestRoller_Bounds(t *testing.T) {
	r := NewRoller(7)
	for i := 0; i < 200; i++ {
		res, err := r.Roll("-2d6-1")
		require.NoError(t, err)
		require.Len(t, res.Dice, 2)
		for _, d := range res.Dice {
			assert.GreaterOrEqual(t, d, 1)
			assert.LessOrEqual(t, d, 6)
		}
		assert.Equal(t, -(res.Dice[0] + res.Dice[1] - 1), res.Total)
	}
}

func TestNewSeed(t *testing.T) {
	a, err := NewSeed()
	require.NoError(t, err)
	b, err := NewSeed()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
