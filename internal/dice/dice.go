// Package dice resolves the dice expressions carried on effect atoms.
//
// Rolls are deterministic with respect to the seed: the executor creates one
// Roller per batch, and replaying a batch with the same seed and the same
// expressions in the same order reproduces every die.
package dice

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

var (
	// ErrEmptyExpr is returned when an expression has no dice term.
	ErrEmptyExpr = errors.New("dice expression is empty")
	// ErrInvalidExpr is returned for malformed expressions.
	ErrInvalidExpr = errors.New("invalid dice expression")
)

// Limits keep a malformed upstream expression from allocating unbounded
// result slices.
const (
	MaxCount = 100
	MaxSides = 1000
)

// Expr is a parsed expression of the form [-]NdM[(+|-)K].
// A leading minus negates the whole roll, which is how damage is expressed.
type Expr struct {
	Negative bool
	Count    int
	Sides    int
	Modifier int
}

// String renders the expression in its canonical form.
func (e Expr) String() string {
	var b strings.Builder
	if e.Negative {
		b.WriteByte('-')
	}
	fmt.Fprintf(&b, "%dd%d", e.Count, e.Sides)
	switch {
	case e.Modifier > 0:
		fmt.Fprintf(&b, "+%d", e.Modifier)
	case e.Modifier < 0:
		fmt.Fprintf(&b, "%d", e.Modifier)
	}
	return b.String()
}

// Parse parses a dice expression. Whitespace is ignored and the count
// defaults to 1 ("d20" is "1d20").
func Parse(s string) (Expr, error) {
	s = strings.ReplaceAll(strings.ToLower(s), " ", "")
	if s == "" {
		return Expr{}, ErrEmptyExpr
	}

	var e Expr
	if strings.HasPrefix(s, "-") {
		e.Negative = true
		s = s[1:]
	}

	count, rest, ok := strings.Cut(s, "d")
	if !ok {
		return Expr{}, fmt.Errorf("%w: %q has no die term", ErrInvalidExpr, s)
	}
	e.Count = 1
	if count != "" {
		n, err := strconv.Atoi(count)
		if err != nil {
			return Expr{}, fmt.Errorf("%w: count %q", ErrInvalidExpr, count)
		}
		e.Count = n
	}

	sides := rest
	if i := strings.IndexAny(rest, "+-"); i >= 0 {
		sides = rest[:i]
		mod, err := strconv.Atoi(rest[i:])
		if err != nil {
			return Expr{}, fmt.Errorf("%w: modifier %q", ErrInvalidExpr, rest[i:])
		}
		e.Modifier = mod
	}
	n, err := strconv.Atoi(sides)
	if err != nil {
		return Expr{}, fmt.Errorf("%w: sides %q", ErrInvalidExpr, sides)
	}
	e.Sides = n

	if e.Count <= 0 || e.Count > MaxCount || e.Sides <= 0 || e.Sides > MaxSides {
		return Expr{}, fmt.Errorf("%w: %s out of range", ErrInvalidExpr, e)
	}
	return e, nil
}

// Result is one resolved expression.
type Result struct {
	Expr  string `json:"expr"`
	Dice  []int  `json:"dice"`
	Total int    `json:"total"`
}

// Roller rolls expressions from a single seeded source.
type Roller struct {
	seed int64
	rng  *rand.Rand
}

// NewRoller creates a roller for the given seed.
func NewRoller(seed int64) *Roller {
	return &Roller{seed: seed, rng: rand.New(rand.NewSource(seed))}
}

// Seed returns the seed the roller was created with.
func (r *Roller) Seed() int64 {
	return r.seed
}

// Roll parses and rolls an expression. Total includes the modifier and
// the sign.
func (r *Roller) Roll(expr string) (Result, error) {
	e, err := Parse(expr)
	if err != nil {
		return Result{}, err
	}
	dice := make([]int, e.Count)
	total := 0
	for i := range dice {
		dice[i] = r.rng.Intn(e.Sides) + 1
		total += dice[i]
	}
	total += e.Modifier
	if e.Negative {
		total = -total
	}
	return Result{Expr: e.String(), Dice: dice, Total: total}, nil
}

// NewSeed generates a seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}
