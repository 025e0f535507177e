package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/roach88/ags/internal/ir"
	"github.com/roach88/ags/internal/world"
)

// Source is the engine surface the store needs.
type Source interface {
	Current() *world.World
	Reset(w *world.World) error
}

// Store takes snapshots of a Source and persists them in the background.
//
// Thread-safety: all methods are safe for concurrent use. RecordTurn is a
// valid engine.TurnListener.
type Store struct {
	src     Source
	backend Backend
	logger  *slog.Logger
	now     func() time.Time

	mu     sync.Mutex
	snaps  map[int64]*Snapshot
	nextID int64
	closed bool
	errs   []error

	queue *writeQueue
	done  chan struct{}
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithNow sets the clock used for snapshot timestamps.
func WithNow(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a store and starts its background writer. Snapshot ids
// continue after the highest id already in the backend.
func New(ctx context.Context, src Source, b Backend, opts ...Option) (*Store, error) {
	last, err := b.LastSnapshotID(ctx)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	s := &Store{
		src:     src,
		backend: b,
		logger:  slog.Default(),
		now:     time.Now,
		snaps:   make(map[int64]*Snapshot),
		nextID:  last + 1,
		queue:   newWriteQueue(),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.run()
	return s, nil
}

// Snapshot captures the current world and queues it for persistence.
func (s *Store) Snapshot(ctx context.Context, note string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("snapshot: %w", err)
	}
	w := s.src.Current()
	hash, err := w.Hash()
	if err != nil {
		return 0, fmt.Errorf("snapshot: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrClosed
	}
	snap := &Snapshot{
		Info: Info{
			ID:       s.nextID,
			Revision: w.Revision,
			Round:    w.Scene.Round,
			Note:     note,
			Hash:     hash,
			TakenAt:  s.now().UTC().Format(time.RFC3339),
		},
		World: w,
	}
	s.nextID++
	s.snaps[snap.ID] = snap
	s.mu.Unlock()

	s.queue.Enqueue(job{kind: jobSnapshot, snap: snap})
	s.logger.Info("snapshot taken",
		"snapshot", snap.ID,
		"revision", snap.Revision,
		"round", snap.Round,
		"hash", snap.Hash,
	)
	return snap.ID, nil
}

// Get returns a snapshot from memory or the backend.
func (s *Store) Get(ctx context.Context, id int64) (*Snapshot, error) {
	s.mu.Lock()
	snap, ok := s.snaps[id]
	s.mu.Unlock()
	if ok {
		return snap, nil
	}

	snap, err := s.backend.ReadSnapshot(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("snapshot %d: %w", id, err)
	}
	s.mu.Lock()
	s.snaps[id] = snap
	s.mu.Unlock()
	return snap, nil
}

// List returns every known snapshot header in id order, including ones
// the writer has not persisted yet.
func (s *Store) List(ctx context.Context) ([]Info, error) {
	stored, err := s.backend.ListSnapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	byID := make(map[int64]Info, len(stored))
	for _, info := range stored {
		byID[info.ID] = info
	}
	s.mu.Lock()
	for id, snap := range s.snaps {
		byID[id] = snap.Info
	}
	s.mu.Unlock()

	out := make([]Info, 0, len(byID))
	for _, id := range slices.Sorted(maps.Keys(byID)) {
		out = append(out, byID[id])
	}
	return out, nil
}

// DiffSince returns the fact changes between snapshot id and the current
// world.
func (s *Store) DiffSince(ctx context.Context, id int64) (ir.Diff, error) {
	snap, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return Diff(snap.World, s.src.Current())
}

// Restore hands snapshot id back to the engine. The restored world takes
// the engine's next revision and is persisted as the latest world.
func (s *Store) Restore(ctx context.Context, id int64) error {
	snap, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.src.Reset(snap.World); err != nil {
		return fmt.Errorf("restore snapshot %d: %w", id, err)
	}
	s.queue.Enqueue(job{kind: jobWorld, world: s.src.Current()})
	s.logger.Info("snapshot restored", "snapshot", id, "revision", s.src.Current().Revision)
	return nil
}

// RecordTurn queues a turn log entry and, for a committed turn, the new
// world. Its signature matches engine.TurnListener.
func (s *Store) RecordTurn(entry world.LogEntry, w *world.World) {
	if !s.queue.Enqueue(job{kind: jobTurn, turn: entry}) {
		s.logger.Warn("turn dropped by closed snapshot store", "turn_id", entry.TurnID)
		return
	}
	if entry.Committed {
		s.queue.Enqueue(job{kind: jobWorld, world: w})
	}
}

// Pending returns the number of queued jobs.
func (s *Store) Pending() int {
	return s.queue.Len()
}

// Flush waits until every job queued before the call is written and
// returns the write errors collected since the last Flush.
func (s *Store) Flush(ctx context.Context) error {
	done := make(chan error, 1)
	if !s.queue.Enqueue(job{kind: jobFlush, done: done}) {
		return ErrClosed
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("flush: %w", ctx.Err())
	}
}

// Close drains the writer and closes the backend.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.queue.Close()
	<-s.done

	s.mu.Lock()
	err := errors.Join(s.errs...)
	s.errs = nil
	s.mu.Unlock()
	return errors.Join(err, s.backend.Close())
}

func (s *Store) run() {
	defer close(s.done)
	for {
		if j, ok := s.queue.TryDequeue(); ok {
			s.write(j)
			continue
		}
		if s.queue.Drained() {
			return
		}
		<-s.queue.Wait()
	}
}

func (s *Store) write(j job) {
	ctx := context.Background()
	var err error
	switch j.kind {
	case jobSnapshot:
		err = s.backend.WriteSnapshot(ctx, j.snap)
		if err != nil {
			err = fmt.Errorf("write snapshot %d: %w", j.snap.ID, err)
		}
	case jobTurn:
		err = s.backend.AppendTurn(ctx, j.turn)
		if err != nil {
			err = fmt.Errorf("append turn %s: %w", j.turn.TurnID, err)
		}
	case jobWorld:
		err = s.backend.SaveWorld(ctx, j.world)
		if err != nil {
			err = fmt.Errorf("save world rev %d: %w", j.world.Revision, err)
		}
	case jobFlush:
		s.mu.Lock()
		collected := errors.Join(s.errs...)
		s.errs = nil
		s.mu.Unlock()
		j.done <- collected
		return
	}
	if err != nil {
		s.logger.Error("background write failed", "error", err)
		s.mu.Lock()
		s.errs = append(s.errs, err)
		s.mu.Unlock()
	}
}
