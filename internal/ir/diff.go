package ir

import (
	"strconv"
	"strings"
)

// Diff operations, named after their JSON Patch (RFC 6902) counterparts.
const (
	OpAdd     = "add"
	OpRemove  = "remove"
	OpReplace = "replace"
)

// Change is one path-keyed difference between two documents.
// Path is an RFC 6901 JSON pointer. Before is nil for adds, After is nil for
// removes.
type Change struct {
	Op     string `json:"op"`
	Path   string `json:"path"`
	Before Value  `json:"before,omitempty"`
	After  Value  `json:"after,omitempty"`
}

// Diff is an ordered list of changes. Order is deterministic: object keys
// are visited in canonical order, array indexes ascending.
type Diff []Change

// Empty reports whether the diff has no changes.
func (d Diff) Empty() bool {
	return len(d) == 0
}

// Paths returns the pointer of every change in order.
func (d Diff) Paths() []string {
	paths := make([]string, 0, len(d))
	for _, c := range d {
		paths = append(paths, c.Path)
	}
	return paths
}

// Compare computes the structural diff from before to after.
//
// Objects are compared key by key. Arrays of equal length are compared
// element by element; arrays whose length changed are replaced whole, since
// index-shifting patches are unreadable in an audit log.
func Compare(before, after Value) Diff {
	d := Diff{}
	compareAt(&d, "", before, after)
	return d
}

func compareAt(d *Diff, path string, before, after Value) {
	if Equal(before, after) {
		return
	}

	switch b := before.(type) {
	case Object:
		if a, ok := after.(Object); ok {
			compareObjects(d, path, b, a)
			return
		}
	case Array:
		if a, ok := after.(Array); ok && len(a) == len(b) {
			for i := range b {
				compareAt(d, path+"/"+strconv.Itoa(i), b[i], a[i])
			}
			return
		}
	}

	switch {
	case before == nil:
		*d = append(*d, Change{Op: OpAdd, Path: path, After: after})
	case after == nil:
		*d = append(*d, Change{Op: OpRemove, Path: path, Before: before})
	default:
		*d = append(*d, Change{Op: OpReplace, Path: path, Before: before, After: after})
	}
}

func compareObjects(d *Diff, path string, before, after Object) {
	keys := make(Object, len(before)+len(after))
	for k := range before {
		keys[k] = Null{}
	}
	for k := range after {
		keys[k] = Null{}
	}
	for _, k := range keys.SortedKeys() {
		b, inBefore := before[k]
		a, inAfter := after[k]
		child := path + "/" + EscapePointer(k)
		switch {
		case inBefore && !inAfter:
			*d = append(*d, Change{Op: OpRemove, Path: child, Before: b})
		case !inBefore && inAfter:
			*d = append(*d, Change{Op: OpAdd, Path: child, After: a})
		default:
			compareAt(d, child, b, a)
		}
	}
}

// EscapePointer escapes one JSON pointer reference token.
func EscapePointer(token string) string {
	token = strings.ReplaceAll(token, "~", "~0")
	return strings.ReplaceAll(token, "/", "~1")
}

// Pointer joins reference tokens into an escaped JSON pointer.
func Pointer(tokens ...string) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteByte('/')
		b.WriteString(EscapePointer(t))
	}
	return b.String()
}
