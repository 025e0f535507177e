// Package kvstore is a snapshot.Backend on Pebble, for deployments that
// want an embedded LSM store instead of SQLite.
//
// Key layout:
//
//	meta/last_snapshot   highest snapshot id (big-endian uint64)
//	meta/turn_seq        number of turn log entries
//	snap/<id:020d>       snapshot document
//	turn/<seq:020d>      turn log entry
//	world                latest world envelope {hash, world}
//
// Counters and records are written in one synced batch, so a crash never
// leaves a counter pointing past the data.
package kvstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/roach88/ags/internal/snapshot"
	"github.com/roach88/ags/internal/world"
)

var (
	keyLastSnapshot = []byte("meta/last_snapshot")
	keyTurnSeq      = []byte("meta/turn_seq")
	keyWorld        = []byte("world")
)

func snapKey(id int64) []byte  { return []byte(fmt.Sprintf("snap/%020d", id)) }
func turnKey(seq int64) []byte { return []byte(fmt.Sprintf("turn/%020d", seq)) }

var _ snapshot.Backend = (*Store)(nil)

// Store is a Pebble-backed snapshot.Backend.
type Store struct {
	mu sync.Mutex // serializes read-modify-write of counters
	db *pebble.DB
}

// Open opens or creates a Pebble database in dir.
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// get returns a copy of the value, or nil and pebble.ErrNotFound.
func (s *Store) get(key []byte) ([]byte, error) {
	data, closer, err := s.db.Get(key)
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return bytes.Clone(data), nil
}

func (s *Store) counter(key []byte) (int64, error) {
	data, err := s.get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("%w: counter %s has %d bytes", snapshot.ErrCorrupt, key, len(data))
	}
	return int64(binary.BigEndian.Uint64(data)), nil
}

func encodeCounter(n int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(n))
	return b[:]
}

// WriteSnapshot implements snapshot.Backend.
func (s *Store) WriteSnapshot(_ context.Context, snap *snapshot.Snapshot) error {
	doc, err := snapshot.Encode(snap)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := snapKey(snap.ID)
	if _, err := s.get(key); err == nil {
		return fmt.Errorf("write snapshot %d: %w", snap.ID, snapshot.ErrExists)
	} else if !errors.Is(err, pebble.ErrNotFound) {
		return fmt.Errorf("write snapshot %d: %w", snap.ID, err)
	}
	last, err := s.counter(keyLastSnapshot)
	if err != nil {
		return fmt.Errorf("write snapshot %d: %w", snap.ID, err)
	}

	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(key, doc, nil); err != nil {
		return fmt.Errorf("write snapshot %d: %w", snap.ID, err)
	}
	if snap.ID > last {
		if err := b.Set(keyLastSnapshot, encodeCounter(snap.ID), nil); err != nil {
			return fmt.Errorf("write snapshot %d: %w", snap.ID, err)
		}
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("write snapshot %d: %w", snap.ID, err)
	}
	return nil
}

// ReadSnapshot implements snapshot.Backend.
func (s *Store) ReadSnapshot(_ context.Context, id int64) (*snapshot.Snapshot, error) {
	doc, err := s.get(snapKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("read snapshot %d: %w", id, snapshot.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %d: %w", id, err)
	}
	return snapshot.Decode(doc)
}

// ListSnapshots implements snapshot.Backend. Ids are probed up to the
// last written id; gaps are skipped.
func (s *Store) ListSnapshots(ctx context.Context) ([]snapshot.Info, error) {
	last, err := s.LastSnapshotID(ctx)
	if err != nil {
		return nil, err
	}
	infos := []snapshot.Info{}
	for id := int64(1); id <= last; id++ {
		snap, err := s.ReadSnapshot(ctx, id)
		if errors.Is(err, snapshot.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		infos = append(infos, snap.Info)
	}
	return infos, nil
}

// LastSnapshotID implements snapshot.Backend.
func (s *Store) LastSnapshotID(_ context.Context) (int64, error) {
	id, err := s.counter(keyLastSnapshot)
	if err != nil {
		return 0, fmt.Errorf("last snapshot id: %w", err)
	}
	return id, nil
}

// AppendTurn implements snapshot.Backend.
func (s *Store) AppendTurn(_ context.Context, entry world.LogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("append turn %s: %w", entry.TurnID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seq, err := s.counter(keyTurnSeq)
	if err != nil {
		return fmt.Errorf("append turn %s: %w", entry.TurnID, err)
	}
	seq++

	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(turnKey(seq), data, nil); err != nil {
		return fmt.Errorf("append turn %s: %w", entry.TurnID, err)
	}
	if err := b.Set(keyTurnSeq, encodeCounter(seq), nil); err != nil {
		return fmt.Errorf("append turn %s: %w", entry.TurnID, err)
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("append turn %s: %w", entry.TurnID, err)
	}
	return nil
}

// ReadTurns implements snapshot.Backend.
func (s *Store) ReadTurns(_ context.Context, afterRevision int64) ([]world.LogEntry, error) {
	n, err := s.counter(keyTurnSeq)
	if err != nil {
		return nil, fmt.Errorf("read turns: %w", err)
	}
	turns := []world.LogEntry{}
	for seq := int64(1); seq <= n; seq++ {
		data, err := s.get(turnKey(seq))
		if err != nil {
			return nil, fmt.Errorf("read turn %d: %w", seq, err)
		}
		var entry world.LogEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			return nil, fmt.Errorf("read turn %d: %w", seq, err)
		}
		if entry.Revision > afterRevision {
			turns = append(turns, entry)
		}
	}
	return turns, nil
}

type worldEnvelope struct {
	Hash  string          `json:"hash"`
	World json.RawMessage `json:"world"`
}

// SaveWorld implements snapshot.Backend.
func (s *Store) SaveWorld(_ context.Context, w *world.World) error {
	doc, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("save world: %w", err)
	}
	hash, err := w.Hash()
	if err != nil {
		return fmt.Errorf("save world: %w", err)
	}
	data, err := json.Marshal(worldEnvelope{Hash: hash, World: doc})
	if err != nil {
		return fmt.Errorf("save world: %w", err)
	}
	if err := s.db.Set(keyWorld, data, pebble.Sync); err != nil {
		return fmt.Errorf("save world %s: %w", w.ID, err)
	}
	return nil
}

// LoadWorld implements snapshot.Backend.
func (s *Store) LoadWorld(_ context.Context) (*world.World, error) {
	data, err := s.get(keyWorld)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("load world: %w", snapshot.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load world: %w", err)
	}
	var env worldEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("load world: %w", err)
	}
	w, err := world.ParseJSON(env.World)
	if err != nil {
		return nil, fmt.Errorf("load world: %w", err)
	}
	got, err := w.Hash()
	if err != nil {
		return nil, fmt.Errorf("load world: %w", err)
	}
	if got != env.Hash {
		return nil, fmt.Errorf("load world: %w: hash %s, recorded %s", snapshot.ErrCorrupt, got, env.Hash)
	}
	return w, nil
}
