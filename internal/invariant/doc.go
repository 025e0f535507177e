// Package invariant scans a world for rule violations.
//
// The checker is read-only. The engine runs it against every working copy
// before commit; an empty result means the world is consistent.
package invariant
