package effect

import "fmt"

// Bounds selects how handlers treat values pushed out of range.
type Bounds string

const (
	// BoundsClamp clamps values into range; reactions then see the
	// clamped value (hp reaching 0 knocks the target out).
	BoundsClamp Bounds = "clamp"
	// BoundsReject writes the raw value and leaves it to the invariant
	// checker, which rolls the batch back.
	BoundsReject Bounds = "reject"
)

// ParseBounds validates a bounds mode name. Empty means clamp.
func ParseBounds(s string) (Bounds, error) {
	switch Bounds(s) {
	case "", BoundsClamp:
		return BoundsClamp, nil
	case BoundsReject:
		return BoundsReject, nil
	}
	return "", fmt.Errorf("unknown bounds mode %q (want clamp or reject)", s)
}

// Policy carries the per-batch settings handlers consult.
type Policy struct {
	Bounds Bounds
	// Now is the audit timestamp stamped on created records and on meta
	// changes. Empty leaves timestamps untouched.
	Now string
}

// DefaultPolicy clamps.
func DefaultPolicy() Policy {
	return Policy{Bounds: BoundsClamp}
}

// bound applies the policy to a value that must stay within [lo, hi].
func (p Policy) bound(v, lo, hi int) int {
	if p.Bounds == BoundsReject {
		return v
	}
	return min(max(v, lo), hi)
}

// floor applies the policy to a value that must stay at or above lo.
func (p Policy) floor(v, lo int) int {
	if p.Bounds == BoundsReject {
		return v
	}
	return max(v, lo)
}
