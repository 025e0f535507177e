package effect

import (
	"fmt"
	"slices"

	"github.com/roach88/ags/internal/ir"
	"github.com/roach88/ags/internal/world"
)

// applyClock advances or rewinds a clock. A clock that does not exist yet
// is created when the atom carries a max.
func applyClock(w *world.World, a Atom, p Policy) ([]world.Change, error) {
	if err := requireResolved(a); err != nil {
		return nil, err
	}
	if a.Target == "" {
		return nil, invalid(a, "target")
	}
	if a.Max < 0 {
		return nil, fail(ErrCodeOutOfDomain, a, "max %d is negative", a.Max)
	}

	var changes []world.Change
	c, err := w.Clock(a.Target)
	if err != nil {
		if a.Max == 0 {
			return nil, unknownTarget(a, "clock", a.Target)
		}
		name := a.Name
		if name == "" {
			name = a.Target
		}
		c = &world.Clock{
			ID:   a.Target,
			Name: name,
			Max:  a.Max,
			Meta: world.Meta{Visibility: world.VisibilityPublic, Source: world.SourceGenerated, CreatedAt: p.Now},
		}
		w.Clocks[c.ID] = c
		w.Scene.Clocks.Add(c.ID)
		changes = append(changes, world.Change{Event: EventClockChanged, Target: c.ID, Field: "value", After: ir.Int(0)})
	}

	before := c.Value
	c.Value = p.bound(before+a.Delta, 0, c.Max)
	if c.Value != before {
		changes = append(changes, intChange(EventClockChanged, c.ID, "value", before, c.Value))
	}
	return changes, nil
}

// applyTurn moves the turn pointer to the next actor. Wrapping past the end
// of the turn order starts a new round, which ticks down timed guard.
func applyTurn(w *world.World, _ Atom, _ Policy) ([]world.Change, error) {
	s := &w.Scene
	beforeActor := s.CurrentActor()
	beforeRound := s.Round

	s.TurnIndex++
	if s.TurnIndex >= len(s.TurnOrder) {
		s.TurnIndex = 0
		s.Round++
	}

	var changes []world.Change
	if len(s.TurnOrder) > 0 {
		changes = append(changes, world.Change{
			Event: EventTurnAdvanced, Target: world.SceneID, Field: "turn_index",
			Before: strValue(beforeActor), After: strValue(s.CurrentActor()),
		})
	}
	if s.Round == beforeRound {
		return changes, nil
	}
	changes = append(changes, intChange(EventRoundAdvanced, world.SceneID, "round", beforeRound, s.Round))

	for _, id := range w.EntityIDs() {
		st := w.Entities[id].Stats
		if st == nil || st.GuardDuration == 0 {
			continue
		}
		changes = append(changes, intChange(EventGuardChanged, id, "guard_duration", st.GuardDuration, st.GuardDuration-1))
		st.GuardDuration--
		if st.GuardDuration == 0 && st.Guard > 0 {
			changes = append(changes, intChange(EventGuardChanged, id, "guard", st.Guard, 0))
			st.Guard = 0
		}
	}
	return changes, nil
}

// applySchedule queues an effect for a later round, or cancels a queued one.
func applySchedule(w *world.World, a Atom, _ Policy) ([]world.Change, error) {
	s := &w.Scene
	if a.Remove {
		if a.ID == "" {
			return nil, invalid(a, "id")
		}
		i := slices.IndexFunc(s.PendingEffects, func(pe world.PendingEffect) bool { return pe.ID == a.ID })
		if i < 0 {
			return nil, unknownTarget(a, "pending effect", a.ID)
		}
		due := s.PendingEffects[i].DueRound
		s.PendingEffects = slices.Delete(s.PendingEffects, i, i+1)
		return []world.Change{{Event: EventEffectUnscheduled, Target: a.ID, Field: "due_round", Before: ir.Int(due)}}, nil
	}

	if a.Effect == nil {
		return nil, invalid(a, "effect")
	}
	if a.Effect.Kind == KindSchedule {
		return nil, fail(ErrCodeOutOfDomain, a, "scheduled effects cannot schedule further effects")
	}
	if a.Delay < 1 {
		return nil, fail(ErrCodeOutOfDomain, a, "delay %d must be at least one round", a.Delay)
	}
	raw, err := a.Effect.Marshal()
	if err != nil {
		return nil, fail(ErrCodeInvalidAtom, a, "%v", err)
	}

	s.Scheduled++
	pe := world.PendingEffect{
		ID:       fmt.Sprintf("pending.%d", s.Scheduled),
		DueRound: s.Round + a.Delay,
		Effect:   raw,
		Source:   a.Actor,
	}
	s.PendingEffects = append(s.PendingEffects, pe)
	return []world.Change{{Event: EventEffectScheduled, Target: pe.ID, Field: "due_round", After: ir.Int(pe.DueRound)}}, nil
}

// applyChoice sets or clears the pending clarification choice.
func applyChoice(w *world.World, a Atom, _ Policy) ([]world.Change, error) {
	s := &w.Scene
	var before string
	if s.PendingChoice != nil {
		before = s.PendingChoice.Prompt
	}
	if a.Remove {
		if s.PendingChoice == nil {
			return nil, nil
		}
		s.PendingChoice = nil
		return []world.Change{{Event: EventChoiceChanged, Target: world.SceneID, Field: "prompt", Before: ir.String(before)}}, nil
	}
	if a.Prompt == "" {
		return nil, invalid(a, "prompt")
	}
	s.PendingChoice = &world.PendingChoice{
		Prompt:  a.Prompt,
		Options: slices.Clone(a.Options),
		Actor:   a.Actor,
	}
	return []world.Change{{
		Event: EventChoiceChanged, Target: world.SceneID, Field: "prompt",
		Before: strValue(before), After: ir.String(a.Prompt),
	}}, nil
}
