// Package world defines the authoritative game state records: entities,
// zones, relationship edges, clocks, the active scene and the World
// aggregate that owns them.
//
// A World is mutated only by effect handlers operating on a working copy
// produced by Clone. Committed worlds are treated as immutable; readers
// may share them across goroutines without locking.
package world
