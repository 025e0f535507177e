// Package snapshot keeps immutable copies of committed worlds and persists
// them, together with the turn log and the latest world, through a Backend.
//
// ARCHITECTURE:
//
// The Store never blocks the engine on I/O. Snapshot() and the turn
// listener hand work to an unbounded FIFO queue drained by one background
// writer goroutine, so a commit is durable in memory before it is on disk.
// Flush() waits for everything queued before it; Close() drains and stops
// the writer.
//
// Snapshots are write-once: a backend refuses a second write for an id.
package snapshot
