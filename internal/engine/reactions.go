package engine

import (
	"log/slog"

	"github.com/roach88/ags/internal/dice"
	"github.com/roach88/ags/internal/effect"
	"github.com/roach88/ags/internal/invariant"
	"github.com/roach88/ags/internal/world"
)

// Built-in rule names.
const (
	RuleUnconscious    = "unconscious"
	RuleFearGuard      = "fear_guard"
	RulePendingEffects = "pending_effects"
)

const (
	// TagUnconscious is added to a creature whose hp reaches zero.
	TagUnconscious = "unconscious"
	// MarkFear is the mark that costs guard.
	MarkFear = "fear"
	// DefaultFearGuardPenalty is the guard lost when fear is marked.
	DefaultFearGuardPenalty = 1
)

// DefaultRules returns the built-in reaction rules.
func DefaultRules(fearPenalty int) []Rule {
	return []Rule{
		UnconsciousRule{},
		FearGuardRule{Penalty: fearPenalty},
		PendingEffectsRule{},
	}
}

// UnconsciousRule knocks out a creature whose hp drops to zero or below:
// it gains the unconscious tag and loses its guard.
type UnconsciousRule struct{}

// Name implements Rule.
func (UnconsciousRule) Name() string { return RuleUnconscious }

// React implements Rule.
func (UnconsciousRule) React(ev Event, w *world.World) []effect.Atom {
	if ev.Name() != effect.EventHPChanged {
		return nil
	}
	hp, ok := ev.Change.AfterInt()
	if !ok || hp > 0 {
		return nil
	}
	e, ok := w.Entities[ev.Change.Target]
	if !ok || e.Stats == nil {
		return nil
	}
	var atoms []effect.Atom
	if !e.Tags.Has(TagUnconscious) {
		atoms = append(atoms, effect.Atom{Kind: effect.KindTag, Target: e.ID, Tag: TagUnconscious})
	}
	if e.Stats.Guard > 0 {
		atoms = append(atoms, effect.Atom{Kind: effect.KindGuard, Target: e.ID, Delta: -e.Stats.Guard})
	}
	return atoms
}

// FearGuardRule lowers guard when a creature is marked with fear.
type FearGuardRule struct {
	Penalty int
}

// Name implements Rule.
func (FearGuardRule) Name() string { return RuleFearGuard }

// React implements Rule.
func (r FearGuardRule) React(ev Event, w *world.World) []effect.Atom {
	if ev.Name() != effect.EventMarkAdded || ev.Change.AfterString() != MarkFear || r.Penalty <= 0 {
		return nil
	}
	e, ok := w.Entities[ev.Change.Target]
	if !ok || e.Stats == nil || e.Stats.Guard <= 0 {
		return nil
	}
	return []effect.Atom{{Kind: effect.KindGuard, Target: e.ID, Delta: -min(r.Penalty, e.Stats.Guard)}}
}

// PendingEffectsRule releases scheduled effects when their round arrives.
// Every due effect is unscheduled in the reaction batch whether or not it
// applies. An effect that would fail against the committed world, or that
// cannot be decoded, is logged and dropped so it cannot roll back the other
// reactions of the turn.
type PendingEffectsRule struct {
	preflight func(w *world.World, a effect.Atom) (*world.World, error)
	logger    *slog.Logger
}

// Name implements Rule.
func (PendingEffectsRule) Name() string { return RulePendingEffects }

func (r PendingEffectsRule) bind(e *Engine) Rule {
	r.preflight = e.preflight
	r.logger = e.logger
	return r
}

// React implements Rule.
func (r PendingEffectsRule) React(ev Event, w *world.World) []effect.Atom {
	if ev.Name() != effect.EventRoundAdvanced {
		return nil
	}
	round, ok := ev.Change.AfterInt()
	if !ok {
		return nil
	}
	logger := r.logger
	if logger == nil {
		logger = slog.Default()
	}

	var atoms []effect.Atom
	work := w
	for _, pe := range w.Scene.PendingEffects {
		if pe.DueRound > round {
			continue
		}
		atoms = append(atoms, effect.Atom{Kind: effect.KindSchedule, ID: pe.ID, Remove: true})
		a, err := effect.Unmarshal(pe.Effect)
		if err != nil {
			logger.Warn("dropping undecodable pending effect",
				"pending_id", pe.ID,
				"turn_id", ev.TurnID,
				"error", err,
			)
			continue
		}
		if r.preflight != nil {
			next, err := r.preflight(work, a)
			if err != nil {
				logger.Warn("dropping failed pending effect",
					"pending_id", pe.ID,
					"kind", a.Kind,
					"target", a.Target,
					"turn_id", ev.TurnID,
					"error", err,
				)
				continue
			}
			work = next
		}
		atoms = append(atoms, a)
	}
	return atoms
}

// binder is implemented by rules that need the engine's logger or its
// effect dry run.
type binder interface {
	bind(e *Engine) Rule
}

func (e *Engine) bindRule(r Rule) Rule {
	if b, ok := r.(binder); ok {
		return b.bind(e)
	}
	return r
}

// preflight applies a to a copy of w the way a reaction batch would and
// returns the copy. It fails on a handler error or on a violation w does
// not already have. Dice are rolled from a fixed seed, so the real batch
// may roll differently.
func (e *Engine) preflight(w *world.World, a effect.Atom) (*world.World, error) {
	resolved, _, err := resolveDice(dice.NewRoller(w.Revision), 0, a)
	if err != nil {
		return nil, err
	}
	work := w.Clone()
	if _, err := e.registry.Apply(work, resolved, effect.Policy{Bounds: e.bounds}); err != nil {
		return nil, err
	}
	if vs := newViolations(e.checker.Check(w), e.checker.Check(work)); len(vs) > 0 {
		return nil, invariant.AsError(vs)
	}
	return work, nil
}
