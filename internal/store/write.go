package store

import (
	"context"
	"fmt"

	"github.com/roach88/ags/internal/snapshot"
	"github.com/roach88/ags/internal/world"
)

// WriteSnapshot inserts a snapshot document. Snapshots are write-once:
// ON CONFLICT DO NOTHING leaves an existing row untouched and the call
// returns snapshot.ErrExists.
func (s *Store) WriteSnapshot(ctx context.Context, snap *snapshot.Snapshot) error {
	doc, err := snapshot.Encode(snap)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, revision, round, note, hash, taken_at, document)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		snap.ID,
		snap.Revision,
		snap.Round,
		snap.Note,
		snap.Hash,
		snap.TakenAt,
		string(doc),
	)
	if err != nil {
		return fmt.Errorf("write snapshot %d: %w", snap.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write snapshot %d: %w", snap.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("write snapshot %d: %w", snap.ID, snapshot.ErrExists)
	}
	return nil
}

// AppendTurn appends one entry to the turn log. The same turn id appears
// twice when a batch had a reaction batch.
func (s *Store) AppendTurn(ctx context.Context, entry world.LogEntry) error {
	data, err := marshalEntry(entry)
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO turns (turn_id, revision, round, actor, committed, reaction, entry)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		entry.TurnID,
		entry.Revision,
		entry.Round,
		entry.Actor,
		entry.Committed,
		entry.Reaction,
		data,
	)
	if err != nil {
		return fmt.Errorf("append turn %s: %w", entry.TurnID, err)
	}
	return nil
}

// SaveWorld replaces the latest world.
func (s *Store) SaveWorld(ctx context.Context, w *world.World) error {
	doc, err := marshalWorld(w)
	if err != nil {
		return fmt.Errorf("save world: %w", err)
	}
	hash, err := w.Hash()
	if err != nil {
		return fmt.Errorf("save world: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO world_state (slot, world_id, revision, hash, document)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			world_id = excluded.world_id,
			revision = excluded.revision,
			hash = excluded.hash,
			document = excluded.document
	`, w.ID, w.Revision, hash, doc)
	if err != nil {
		return fmt.Errorf("save world %s: %w", w.ID, err)
	}
	return nil
}
