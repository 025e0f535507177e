package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/ags/internal/dice"
	"github.com/roach88/ags/internal/effect"
	"github.com/roach88/ags/internal/invariant"
	"github.com/roach88/ags/internal/ir"
	"github.com/roach88/ags/internal/world"
)

// maxHintChanges bounds the generated narration hint.
const maxHintChanges = 6

// Batch is one ordered list of effects submitted by a caller.
type Batch struct {
	Effects []effect.Atom `json:"effects"`
	Actor   string        `json:"actor,omitempty"`
	// NonTransactional commits partial results and standing violations
	// instead of rolling back.
	NonTransactional bool `json:"non_transactional,omitempty"`
	// Seed overrides the dice seed. Nil draws a fresh one.
	Seed *int64 `json:"seed,omitempty"`
	// Hint is the caller's narration hint. Empty generates one from the
	// committed changes.
	Hint string `json:"hint,omitempty"`
	// TurnID and At are normally assigned by the engine; replay sets them
	// to reproduce a logged turn exactly.
	TurnID string `json:"turn_id,omitempty"`
	At     string `json:"at,omitempty"`
}

// Result reports the outcome of one batch.
type Result struct {
	TurnID    string `json:"turn_id"`
	Committed bool   `json:"committed"`
	// Revision is the committed revision, or the revision the batch was
	// applied against when it did not commit.
	Revision   int64                 `json:"revision"`
	Seed       int64                 `json:"seed"`
	Rolls      []world.Roll          `json:"rolls,omitempty"`
	Resolved   []effect.Atom         `json:"resolved,omitempty"`
	Events     []Event               `json:"events,omitempty"`
	Hint       string                `json:"hint,omitempty"`
	Error      *effect.HandlerError  `json:"error,omitempty"`
	Violations []invariant.Violation `json:"violations,omitempty"`
	// Reaction is the follow-up batch produced by reaction rules, if any.
	Reaction         *Result `json:"reaction,omitempty"`
	ReactionsDropped int     `json:"reactions_dropped,omitempty"`
}

// Err returns the reason the batch did not commit cleanly, or nil.
func (r *Result) Err() error {
	if r.Error != nil {
		return r.Error
	}
	if len(r.Violations) > 0 {
		return invariant.AsError(r.Violations)
	}
	return nil
}

// pass is one execution of a batch under the commit lock.
type pass struct {
	batch    Batch
	turnID   string
	seed     int64
	at       string
	reaction bool
}

// execute runs p against a working copy of the committed world and
// commits or discards it. Caller holds e.mu.
func (e *Engine) execute(p pass) *Result {
	base := e.current.Load()
	work := base.Clone()
	policy := effect.Policy{Bounds: e.bounds, Now: p.at}

	res := &Result{TurnID: p.turnID, Revision: base.Revision, Seed: p.seed}
	roller := dice.NewRoller(p.seed)

	var changes []world.Change
	for i, a := range p.batch.Effects {
		resolved, roll, err := resolveDice(roller, i, a)
		if err == nil {
			if roll != nil {
				res.Rolls = append(res.Rolls, *roll)
			}
			var cs []world.Change
			cs, err = e.registry.Apply(work, resolved, policy)
			changes = append(changes, cs...)
			res.Resolved = append(res.Resolved, resolved)
		}
		if err != nil {
			res.Error = asHandlerError(err, a, i)
			break
		}
	}

	violations := e.checker.Check(work)
	introduced := newViolations(e.StandingViolations(), violations)

	commit := p.batch.NonTransactional || (res.Error == nil && len(introduced) == 0)
	if !commit {
		res.Violations = introduced
		e.logger.Warn("batch rolled back",
			"turn_id", p.turnID,
			"revision", base.Revision,
			"reaction", p.reaction,
			"error", res.Err(),
		)
		e.notify(e.logEntry(p, res, base, nil), base)
		return res
	}

	res.Committed = true
	res.Violations = violations
	work.Revision = e.clock.Next()
	res.Revision = work.Revision
	res.Hint = p.batch.Hint
	if res.Hint == "" {
		res.Hint = summarize(changes)
	}

	entry := e.logEntry(p, res, work, changes)
	work.Scene.Log = appendBounded(work.Scene.Log, entry, e.logLimit)

	e.current.Store(work)
	e.setStanding(violations)

	if len(violations) > 0 {
		e.logger.Warn("batch committed with standing violations",
			"turn_id", p.turnID,
			"revision", work.Revision,
			"count", len(violations),
			"first", violations[0].String(),
		)
	}
	if res.Error != nil {
		e.logger.Warn("non-transactional batch committed partially",
			"turn_id", p.turnID,
			"error", res.Error,
		)
	}

	res.Events = make([]Event, 0, len(changes))
	for _, ch := range changes {
		res.Events = append(res.Events, Event{
			Change:   ch,
			TurnID:   p.turnID,
			Revision: work.Revision,
			Reaction: p.reaction,
		})
	}
	e.bus.Publish(res.Events, work)
	e.notify(entry, work)

	e.logger.Debug("batch committed",
		"turn_id", p.turnID,
		"revision", work.Revision,
		"effects", len(res.Resolved),
		"events", len(res.Events),
		"reaction", p.reaction,
	)
	return res
}

// react runs the single reaction level for a committed trigger batch.
// Reaction effects never trigger further rules.
func (e *Engine) react(p pass, trigger *Result) {
	if len(trigger.Events) == 0 {
		return
	}
	proposals := e.bus.Propose(trigger.Events, e.current.Load())
	if len(proposals) == 0 {
		return
	}
	defer e.cycleDetector.Clear(p.turnID)

	quota := NewQuotaEnforcer(e.maxReactionEffects)
	atoms := make([]effect.Atom, 0, len(proposals))
	var exceeded error
	for _, prop := range proposals {
		key, err := json.Marshal(prop.Atom)
		if err != nil {
			e.logger.Error("reaction effect not encodable",
				"rule", prop.Rule,
				"turn_id", p.turnID,
				"error", err,
			)
			continue
		}
		if e.cycleDetector.WouldCycle(p.turnID, prop.Rule, string(key)) {
			continue
		}
		e.cycleDetector.Record(p.turnID, prop.Rule, string(key))
		if err := quota.Check(p.turnID); err != nil {
			exceeded = err
			trigger.ReactionsDropped++
			continue
		}
		atoms = append(atoms, prop.Atom)
	}
	if exceeded != nil {
		e.logger.Warn("reaction effects dropped",
			"turn_id", p.turnID,
			"dropped", trigger.ReactionsDropped,
			"error", exceeded,
		)
	}
	if len(atoms) == 0 {
		return
	}

	rp := pass{
		batch:    Batch{Effects: atoms, Actor: p.batch.Actor},
		turnID:   p.turnID,
		seed:     p.seed + 1,
		at:       p.at,
		reaction: true,
	}
	trigger.Reaction = e.execute(rp)
	if !trigger.Reaction.Committed {
		e.logger.Error("reaction batch failed",
			"turn_id", p.turnID,
			"error", trigger.Reaction.Err(),
		)
	}
}

// resolveDice rolls a.Dice and folds the total into Delta.
func resolveDice(r *dice.Roller, index int, a effect.Atom) (effect.Atom, *world.Roll, error) {
	if a.Dice == "" {
		return a, nil, nil
	}
	rolled, err := r.Roll(a.Dice)
	if err != nil {
		return a, nil, &effect.HandlerError{
			Code:    effect.ErrCodeInvalidAtom,
			Kind:    a.Kind,
			Target:  a.Target,
			Message: err.Error(),
		}
	}
	a.Delta += rolled.Total
	a.Dice = ""
	return a, &world.Roll{
		Effect: index,
		Expr:   rolled.Expr,
		Dice:   rolled.Dice,
		Total:  rolled.Total,
	}, nil
}

func asHandlerError(err error, a effect.Atom, index int) *effect.HandlerError {
	he, ok := effect.AsHandlerError(err)
	if !ok {
		he = &effect.HandlerError{
			Code:    effect.ErrCodeInvalidAtom,
			Kind:    a.Kind,
			Target:  a.Target,
			Message: err.Error(),
		}
	}
	he.Index = index
	return he
}

// newViolations returns the violations in current that were not already
// standing. A standing violation only excuses the identical violation: a
// batch that leaves a broken record broken in a different way, such as hp
// pushed further out of range, introduces a new one.
func newViolations(standing, current []invariant.Violation) []invariant.Violation {
	if len(current) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(standing))
	for _, v := range standing {
		seen[violationKey(v)] = true
	}
	var out []invariant.Violation
	for _, v := range current {
		if !seen[violationKey(v)] {
			out = append(out, v)
		}
	}
	return out
}

func violationKey(v invariant.Violation) string {
	return v.Rule + "\x00" + v.Record + "\x00" + v.Message
}

func (e *Engine) logEntry(p pass, res *Result, w *world.World, changes []world.Change) world.LogEntry {
	entry := world.LogEntry{
		TurnID:           p.turnID,
		Revision:         res.Revision,
		Round:            w.Scene.Round,
		Actor:            p.batch.Actor,
		At:               p.at,
		Seed:             p.seed,
		Rolls:            res.Rolls,
		Changes:          changes,
		Committed:        res.Committed,
		NonTransactional: p.batch.NonTransactional,
		Reaction:         p.reaction,
		Hint:             res.Hint,
	}
	if err := res.Err(); err != nil {
		entry.Error = err.Error()
	}
	var err error
	if entry.Submitted, err = effect.MarshalAll(p.batch.Effects); err != nil {
		e.logger.Error("submitted effects not encodable", "turn_id", p.turnID, "error", err)
	}
	if entry.Resolved, err = effect.MarshalAll(res.Resolved); err != nil {
		e.logger.Error("resolved effects not encodable", "turn_id", p.turnID, "error", err)
	}
	return entry
}

func appendBounded(log []world.LogEntry, entry world.LogEntry, limit int) []world.LogEntry {
	if limit <= 0 {
		return nil
	}
	log = append(log, entry)
	if len(log) > limit {
		log = log[len(log)-limit:]
	}
	return log
}

// summarize renders a short narration hint from the committed changes,
// e.g. "hp_changed pc.arin 12 -> 0; tag_added pc.arin unconscious".
func summarize(changes []world.Change) string {
	parts := make([]string, 0, min(len(changes), maxHintChanges)+1)
	for i, ch := range changes {
		if i == maxHintChanges {
			parts = append(parts, fmt.Sprintf("+%d more", len(changes)-i))
			break
		}
		var b strings.Builder
		b.WriteString(ch.Event)
		b.WriteByte(' ')
		b.WriteString(ch.Target)
		if ch.Related != "" {
			b.WriteString(" " + ch.Related)
		}
		switch {
		case ch.Before != nil && ch.After != nil:
			fmt.Fprintf(&b, " %s -> %s", hintValue(ch.Before), hintValue(ch.After))
		case ch.After != nil:
			b.WriteString(" " + hintValue(ch.After))
		case ch.Before != nil:
			b.WriteString(" " + hintValue(ch.Before))
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "; ")
}

func hintValue(v ir.Value) string {
	switch x := v.(type) {
	case ir.String:
		return string(x)
	case ir.Int:
		return fmt.Sprintf("%d", int64(x))
	case ir.Bool:
		return fmt.Sprintf("%t", bool(x))
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return "?"
	}
	return string(data)
}
