package snapshot

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/roach88/ags/internal/world"
)

var (
	// ErrNotFound is returned for a missing snapshot or world.
	ErrNotFound = errors.New("not found")
	// ErrExists is returned when a snapshot id is written twice.
	ErrExists = errors.New("snapshot already exists")
	// ErrCorrupt is returned when a stored document fails its hash check.
	ErrCorrupt = errors.New("stored document is corrupt")
	// ErrClosed is returned by a closed store.
	ErrClosed = errors.New("snapshot store is closed")
)

// Backend is the persistence contract for snapshots, the turn log and the
// latest committed world.
type Backend interface {
	// WriteSnapshot stores s. It returns ErrExists if s.ID is taken.
	WriteSnapshot(ctx context.Context, s *Snapshot) error
	// ReadSnapshot returns ErrNotFound for an unknown id.
	ReadSnapshot(ctx context.Context, id int64) (*Snapshot, error)
	// ListSnapshots returns snapshot headers in id order.
	ListSnapshots(ctx context.Context) ([]Info, error)
	// LastSnapshotID returns the highest id, or 0 when there are none.
	LastSnapshotID(ctx context.Context) (int64, error)

	// AppendTurn appends one entry to the turn log.
	AppendTurn(ctx context.Context, entry world.LogEntry) error
	// ReadTurns returns entries with a revision above afterRevision, in
	// append order.
	ReadTurns(ctx context.Context, afterRevision int64) ([]world.LogEntry, error)

	// SaveWorld replaces the latest world.
	SaveWorld(ctx context.Context, w *world.World) error
	// LoadWorld returns ErrNotFound before the first SaveWorld.
	LoadWorld(ctx context.Context) (*world.World, error)

	Close() error
}

// MemoryBackend keeps everything in process. It is used by tests and by
// one-shot CLI runs that do not name a database.
type MemoryBackend struct {
	mu     sync.RWMutex
	snaps  map[int64]*Snapshot
	turns  []world.LogEntry
	latest *world.World
}

// NewMemoryBackend creates an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{snaps: make(map[int64]*Snapshot)}
}

// WriteSnapshot implements Backend.
func (m *MemoryBackend) WriteSnapshot(_ context.Context, s *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.snaps[s.ID]; ok {
		return ErrExists
	}
	m.snaps[s.ID] = &Snapshot{Info: s.Info, World: s.World.Clone()}
	return nil
}

// ReadSnapshot implements Backend.
func (m *MemoryBackend) ReadSnapshot(_ context.Context, id int64) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snaps[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &Snapshot{Info: s.Info, World: s.World.Clone()}, nil
}

// ListSnapshots implements Backend.
func (m *MemoryBackend) ListSnapshots(_ context.Context) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Info, 0, len(m.snaps))
	for _, s := range m.snaps {
		out = append(out, s.Info)
	}
	slices.SortFunc(out, func(a, b Info) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// LastSnapshotID implements Backend.
func (m *MemoryBackend) LastSnapshotID(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var last int64
	for id := range m.snaps {
		last = max(last, id)
	}
	return last, nil
}

// AppendTurn implements Backend.
func (m *MemoryBackend) AppendTurn(_ context.Context, entry world.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, entry)
	return nil
}

// ReadTurns implements Backend.
func (m *MemoryBackend) ReadTurns(_ context.Context, afterRevision int64) ([]world.LogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []world.LogEntry
	for _, t := range m.turns {
		if t.Revision > afterRevision {
			out = append(out, t)
		}
	}
	return out, nil
}

// SaveWorld implements Backend.
func (m *MemoryBackend) SaveWorld(_ context.Context, w *world.World) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest = w.Clone()
	return nil
}

// LoadWorld implements Backend.
func (m *MemoryBackend) LoadWorld(_ context.Context) (*world.World, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.latest == nil {
		return nil, ErrNotFound
	}
	return m.latest.Clone(), nil
}

// Close implements Backend.
func (m *MemoryBackend) Close() error {
	return nil
}
