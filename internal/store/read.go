package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/ags/internal/snapshot"
	"github.com/roach88/ags/internal/world"
)

// ReadSnapshot returns a snapshot, or snapshot.ErrNotFound.
func (s *Store) ReadSnapshot(ctx context.Context, id int64) (*snapshot.Snapshot, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `
		SELECT document FROM snapshots WHERE id = ?
	`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read snapshot %d: %w", id, snapshot.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %d: %w", id, err)
	}
	return snapshot.Decode([]byte(doc))
}

// ListSnapshots returns snapshot headers ordered by id.
//
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListSnapshots(ctx context.Context) ([]snapshot.Info, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, revision, round, note, hash, taken_at
		FROM snapshots
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	infos := []snapshot.Info{}
	for rows.Next() {
		var info snapshot.Info
		if err := rows.Scan(&info.ID, &info.Revision, &info.Round, &info.Note, &info.Hash, &info.TakenAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return infos, nil
}

// LastSnapshotID returns the highest snapshot id, or 0.
func (s *Store) LastSnapshotID(ctx context.Context) (int64, error) {
	var id int64
	if err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(id), 0) FROM snapshots
	`).Scan(&id); err != nil {
		return 0, fmt.Errorf("last snapshot id: %w", err)
	}
	return id, nil
}

// ReadTurns returns turn log entries with revision above afterRevision,
// in append order.
//
// Returns an empty slice (not nil) if there are none.
func (s *Store) ReadTurns(ctx context.Context, afterRevision int64) ([]world.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entry FROM turns
		WHERE revision > ?
		ORDER BY seq ASC
	`, afterRevision)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	turns := []world.LogEntry{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		entry, err := unmarshalEntry(data)
		if err != nil {
			return nil, err
		}
		turns = append(turns, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return turns, nil
}

// LoadWorld returns the latest saved world, or snapshot.ErrNotFound.
func (s *Store) LoadWorld(ctx context.Context) (*world.World, error) {
	var doc, hash string
	err := s.db.QueryRowContext(ctx, `
		SELECT document, hash FROM world_state WHERE slot = 1
	`).Scan(&doc, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load world: %w", snapshot.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load world: %w", err)
	}

	w, err := world.ParseJSON([]byte(doc))
	if err != nil {
		return nil, fmt.Errorf("load world: %w", err)
	}
	got, err := w.Hash()
	if err != nil {
		return nil, fmt.Errorf("load world: %w", err)
	}
	if got != hash {
		return nil, fmt.Errorf("load world: %w: hash %s, recorded %s", snapshot.ErrCorrupt, got, hash)
	}
	return w, nil
}
