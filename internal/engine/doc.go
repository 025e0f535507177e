// Package engine is the authoritative game state engine: the single writer
// that applies effect batches to a world.
//
// ARCHITECTURE:
//
// Single Writer, Lock-Free Readers:
// Apply serializes on the commit mutex for a whole batch and its reaction
// batch. The committed world sits behind an atomic pointer and is never
// mutated after the swap, so Current() readers need no locks.
//
// Batch Flow:
//  1. Clone the committed world into a working copy
//  2. Resolve dice on each atom with the batch seed
//  3. Dispatch every atom through the effect registry, in order
//  4. Run the invariant checker on the working copy
//  5. Commit (bump revision, log, swap pointer) or drop the copy
//  6. Publish one event per change to subscribers
//  7. Collect reaction effects from the rules and apply them as one more
//     transactional batch, whose events never trigger rules again
//
// Turn listeners see every batch, committed or not; the snapshot store uses
// them to persist the turn log and the world.
//
// CRITICAL PATTERNS:
//
// Determinism:
// A batch is a pure function of the committed world, its effects, its seed
// and its timestamp. Replay feeds recorded turns back through Apply and
// must reproduce the recorded world hash.
//
// Depth-One Reactions:
// Reaction batches do not consult rules, so every turn terminates.
package engine
