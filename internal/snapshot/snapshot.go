package snapshot

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/ags/internal/ir"
	"github.com/roach88/ags/internal/world"
)

// Snapshot is an immutable copy of a committed world.
type Snapshot struct {
	Info
	World *world.World
}

// Info is the snapshot header, listed without loading the world.
type Info struct {
	ID       int64  `json:"id"`
	Revision int64  `json:"revision"`
	Round    int    `json:"round"`
	Note     string `json:"note,omitempty"`
	Hash     string `json:"hash"`
	TakenAt  string `json:"taken_at"`
}

type document struct {
	Info
	World json.RawMessage `json:"world"`
}

// Encode renders the persisted snapshot document.
func Encode(s *Snapshot) ([]byte, error) {
	w, err := json.Marshal(s.World)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot %d: %w", s.ID, err)
	}
	data, err := json.Marshal(document{Info: s.Info, World: w})
	if err != nil {
		return nil, fmt.Errorf("encode snapshot %d: %w", s.ID, err)
	}
	return data, nil
}

// Decode parses a persisted snapshot document and checks the world
// against the recorded hash.
func Decode(data []byte) (*Snapshot, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	w, err := world.ParseJSON(doc.World)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %d: %w", doc.ID, err)
	}
	hash, err := w.Hash()
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %d: %w", doc.ID, err)
	}
	if doc.Hash != "" && hash != doc.Hash {
		return nil, fmt.Errorf("decode snapshot %d: %w: hash %s, recorded %s",
			doc.ID, ErrCorrupt, hash, doc.Hash)
	}
	return &Snapshot{Info: doc.Info, World: w}, nil
}

// factDocument returns the world document without the bookkeeping that
// changes on every commit, so diffs show only facts.
func factDocument(w *world.World) (ir.Object, error) {
	doc, err := w.Document()
	if err != nil {
		return nil, err
	}
	delete(doc, "revision")
	if scene, ok := doc["scene"].(ir.Object); ok {
		delete(scene, "log")
	}
	return doc, nil
}

// Diff returns the path-keyed changes from before to after.
func Diff(before, after *world.World) (ir.Diff, error) {
	b, err := factDocument(before)
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	a, err := factDocument(after)
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	return ir.Compare(b, a), nil
}
