package engine

// # Replay and Determinism
//
// A committed world is reproducible from an earlier world plus the turn
// log. Replay is not a special mode: it feeds each logged batch back
// through Apply with the logged turn id, seed and timestamp.
//
// Three things make the result identical:
//
// 1. Seeded Dice
//
//	roller := dice.NewRoller(seed)
//
// Every expression in a batch draws from one roller in atom order. The
// reaction batch uses seed+1.
//
// 2. Fixed Audit Fields
//
// The turn id and the At timestamp are taken from the log, so the scene log
// entries written during replay match the originals byte for byte.
//
// 3. Reactions Re-derived
//
// Reaction entries are not replayed directly. Replaying the trigger
// batch runs the same rules against the same world and proposes the same
// reaction batch.
//
// ## Replay Flow
//
//	[Base World @ rev N] → for each logged turn:
//	                          skip if !committed, reaction, or revision <= N
//	                          Apply(Batch{submitted, seed, turn id, at})
//	                          revision must equal the logged revision
//	                       → hash(final) must equal the expected hash
//
// Failed batches never changed the world, so skipping them is exact. A
// world reset (snapshot restore) bumps the revision without a turn entry;
// replay across a reset diverges and must start from a snapshot taken
// after it.

import (
	"context"
	"fmt"

	"github.com/roach88/ags/internal/effect"
	"github.com/roach88/ags/internal/world"
)

// ReplayResult summarizes a successful replay.
type ReplayResult struct {
	World   *world.World
	Hash    string
	Applied int
	Skipped int
}

// Replay rebuilds a world from base by re-applying the committed turns
// newer than base.Revision. If wantHash is not empty the final document
// hash must match it.
//
// opts must configure the same bounds mode and rules the original engine
// used; anything else diverges.
func Replay(ctx context.Context, base *world.World, turns []world.LogEntry, wantHash string, opts ...EngineOption) (*ReplayResult, error) {
	e, err := New(base, opts...)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	out := &ReplayResult{}
	for _, t := range turns {
		if !t.Committed || t.Reaction || t.Revision <= base.Revision {
			out.Skipped++
			continue
		}
		atoms, err := effect.UnmarshalAll(t.Submitted)
		if err != nil {
			return nil, fmt.Errorf("replay turn %s: %w", t.TurnID, err)
		}
		seed := t.Seed
		res, err := e.Apply(ctx, Batch{
			Effects:          atoms,
			Actor:            t.Actor,
			NonTransactional: t.NonTransactional,
			Seed:             &seed,
			Hint:             t.Hint,
			TurnID:           t.TurnID,
			At:               t.At,
		})
		if err != nil {
			return nil, fmt.Errorf("replay turn %s: %w", t.TurnID, err)
		}
		if !res.Committed {
			return nil, newRuntimeError(ErrCodeReplayDiverged, t.TurnID,
				"logged as committed but rolled back: %v", res.Err())
		}
		if res.Revision != t.Revision {
			return nil, newRuntimeError(ErrCodeReplayDiverged, t.TurnID,
				"revision %d, logged %d", res.Revision, t.Revision)
		}
		out.Applied++
	}

	out.World = e.Current()
	if out.Hash, err = out.World.Hash(); err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	if wantHash != "" && out.Hash != wantHash {
		return nil, newRuntimeError(ErrCodeReplayDiverged, "",
			"hash %s, want %s", out.Hash, wantHash)
	}
	return out, nil
}
