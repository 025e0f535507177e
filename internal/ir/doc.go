// Package ir provides the canonical document representation for AGS.
//
// World records are converted to ir.Value trees for three purposes: hashing
// (content identity of worlds, snapshots and turns), persistence (canonical
// JSON documents) and structural diffs between snapshots.
//
// ir imports nothing internal; every other package may import it.
//
// Constraints:
//   - no float values anywhere; all quantities are int64
//   - canonical JSON follows RFC 8785 with NFC-normalized strings
//   - JSON tags use snake_case
package ir
