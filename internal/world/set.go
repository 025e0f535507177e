package world

import "slices"

// Set is a sorted set of strings. The sorted form keeps documents, hashes
// and diffs stable regardless of insertion order.
type Set []string

// NewSet builds a set from arbitrary values, dropping duplicates.
func NewSet(values ...string) Set {
	var s Set
	for _, v := range values {
		s.Add(v)
	}
	return s
}

// Has reports whether v is in the set.
func (s Set) Has(v string) bool {
	_, found := slices.BinarySearch(s, v)
	return found
}

// Add inserts v and reports whether the set changed.
func (s *Set) Add(v string) bool {
	i, found := slices.BinarySearch(*s, v)
	if found {
		return false
	}
	*s = slices.Insert(*s, i, v)
	return true
}

// Remove deletes v and reports whether the set changed.
func (s *Set) Remove(v string) bool {
	i, found := slices.BinarySearch(*s, v)
	if !found {
		return false
	}
	*s = slices.Delete(*s, i, i+1)
	return true
}

// Clone returns an independent copy. A nil set stays nil.
func (s Set) Clone() Set {
	if s == nil {
		return nil
	}
	return slices.Clone(s)
}

// normalize sorts and deduplicates a set decoded from an external document.
func (s Set) normalize() Set {
	if len(s) == 0 {
		return s
	}
	out := slices.Clone(s)
	slices.Sort(out)
	return slices.Compact(out)
}
