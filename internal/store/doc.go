// Package store provides SQLite-backed persistence for the game state
// engine. It implements snapshot.Backend.
//
// Tables:
//   - snapshots: write-once snapshot documents keyed by id
//   - turns: the append-only turn log, one row per batch, committed or not
//   - world_state: the latest committed world (a single row)
//
// # Critical Patterns
//
// Logical Ordering:
//   - Turns are ordered by seq (insertion order), NEVER by timestamp
//   - Queries MUST include ORDER BY seq ASC or ORDER BY id ASC
//
// Write-Once Snapshots:
//   - INSERT ... ON CONFLICT DO NOTHING; zero rows affected is ErrExists
//
// Self-Verifying Documents:
//   - Snapshot and world rows carry the document hash, checked on read
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
