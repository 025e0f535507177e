package world

import (
	"encoding/json"
	"maps"
	"slices"
)

// SceneID is the effect target naming the active scene.
const SceneID = "scene"

// Scene is the turn state of the active encounter.
type Scene struct {
	Round          int               `json:"round"`
	TurnOrder      []string          `json:"turn_order,omitempty"`
	TurnIndex      int               `json:"turn_index"`
	Tags           map[string]string `json:"tags,omitempty"`
	Clocks         Set               `json:"clocks,omitempty"`
	PendingChoice  *PendingChoice    `json:"pending_choice,omitempty"`
	PendingEffects []PendingEffect   `json:"pending_effects,omitempty"`
	Scheduled      int               `json:"scheduled,omitempty"`
	Log            []LogEntry        `json:"log,omitempty"`
}

// PendingChoice records a clarification the caller must resolve before the
// next action.
type PendingChoice struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options,omitempty"`
	Actor   string   `json:"actor,omitempty"`
}

// PendingEffect is an effect scheduled for a later round.
type PendingEffect struct {
	ID       string          `json:"id"`
	DueRound int             `json:"due_round"`
	Effect   json.RawMessage `json:"effect"`
	Source   string          `json:"source,omitempty"`
}

// Roll records one dice expression resolved during a turn.
type Roll struct {
	Effect int    `json:"effect"`
	Expr   string `json:"expr"`
	Dice   []int  `json:"dice"`
	Total  int    `json:"total"`
}

// LogEntry is the record of one effect batch. Committed batches are kept
// in the scene log; every batch, committed or not, is appended to the
// persisted turn log.
//
// Revision is the world revision the batch produced, or for a batch that
// did not commit, the revision it was applied against.
type LogEntry struct {
	TurnID           string            `json:"turn_id"`
	Revision         int64             `json:"revision"`
	Round            int               `json:"round"`
	Actor            string            `json:"actor,omitempty"`
	At               string            `json:"at,omitempty"`
	Seed             int64             `json:"seed"`
	Submitted        []json.RawMessage `json:"submitted"`
	Resolved         []json.RawMessage `json:"resolved"`
	Rolls            []Roll            `json:"rolls,omitempty"`
	Changes          []Change          `json:"changes,omitempty"`
	Committed        bool              `json:"committed"`
	NonTransactional bool              `json:"non_transactional,omitempty"`
	Reaction         bool              `json:"reaction,omitempty"`
	Hint             string            `json:"hint,omitempty"`
	Error            string            `json:"error,omitempty"`
}

// CurrentActor returns the entity whose turn it is, or "".
func (s *Scene) CurrentActor() string {
	if s.TurnIndex < 0 || s.TurnIndex >= len(s.TurnOrder) {
		return ""
	}
	return s.TurnOrder[s.TurnIndex]
}

// Clone returns a deep copy of the scene.
func (s Scene) Clone() Scene {
	c := s
	c.TurnOrder = slices.Clone(s.TurnOrder)
	c.Tags = maps.Clone(s.Tags)
	c.Clocks = s.Clocks.Clone()
	if s.PendingChoice != nil {
		pc := *s.PendingChoice
		pc.Options = slices.Clone(s.PendingChoice.Options)
		c.PendingChoice = &pc
	}
	if s.PendingEffects != nil {
		c.PendingEffects = make([]PendingEffect, len(s.PendingEffects))
		for i, pe := range s.PendingEffects {
			pe.Effect = slices.Clone(pe.Effect)
			c.PendingEffects[i] = pe
		}
	}
	// Log entries are append-only and never mutated after commit, so the
	// entries themselves are shared.
	c.Log = slices.Clone(s.Log)
	return c
}
