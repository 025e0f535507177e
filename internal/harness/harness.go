package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/roach88/ags/internal/config"
	"github.com/roach88/ags/internal/engine"
	"github.com/roach88/ags/internal/testutil"
	"github.com/roach88/ags/internal/world"
)

// run is the state of one scenario execution.
type run struct {
	scenario *Scenario
	policy   config.Policy
	logger   *slog.Logger
	start    *world.World
	engine   *engine.Engine
	turns    []world.LogEntry
}

// Run executes a scenario on a fresh engine.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext executes a scenario on a fresh engine. The returned error is
// for scenarios that cannot run at all; failed expectations are reported
// in the Result.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	policy, err := scenario.policy()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	start, err := scenario.loadWorld()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	r := &run{
		scenario: scenario,
		policy:   policy,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		start:    start,
	}
	clock := testutil.NewDeterministicClock()
	opts := append(r.engineOptions(),
		engine.WithIDGenerator(testutil.NewSequenceGenerator("turn")),
		engine.WithNow(clock.Now),
		engine.WithSeedSource(func() (int64, error) { return scenario.Seed, nil }),
	)
	r.engine, err = engine.New(start, opts...)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	r.engine.OnTurn(func(entry world.LogEntry, _ *world.World) {
		r.turns = append(r.turns, entry)
	})

	result := NewResult()
	for i, step := range scenario.Steps {
		batch, err := step.batch(scenario.Seed)
		if err != nil {
			return nil, fmt.Errorf("steps[%d] %s: %w", i, step.Name, err)
		}
		res, err := r.engine.Apply(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("steps[%d] %s: %w", i, step.Name, err)
		}
		first := len(result.Trace)
		result.Steps = append(result.Steps, outcomeOf(step.Name, res))
		addTrace(result, step.Name, res)
		if step.Expect != nil {
			checkExpect(result, i, step, res, result.Events()[first:])
		}
	}

	for i, a := range scenario.Assertions {
		if err := r.assert(ctx, a, result); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d] %s: %v", i, a.Type, err))
		}
	}

	result.World = r.engine.Current()
	if result.Hash, err = result.World.Hash(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	return result, nil
}

// engineOptions are the policy options every engine of this run shares,
// the replaying one included.
func (r *run) engineOptions() []engine.EngineOption {
	return append(r.policy.EngineOptions(), engine.WithLogger(r.logger))
}

func (s *Scenario) loadWorld() (*world.World, error) {
	if s.World == BuiltinKeep {
		return testutil.NewKeep(), nil
	}
	path := s.World
	if !filepath.IsAbs(path) && s.dir != "" {
		path = filepath.Join(s.dir, path)
	}
	return world.Load(path)
}

func outcomeOf(name string, res *engine.Result) StepOutcome {
	out := StepOutcome{Name: name, Committed: res.Committed, Revision: res.Revision}
	if res.Error != nil {
		out.Error = string(res.Error.Code)
	}
	for _, v := range res.Violations {
		out.Violations = append(out.Violations, v.Rule)
	}
	if res.Reaction != nil && res.Reaction.Committed {
		out.Reaction = res.Reaction.Revision
	}
	return out
}

func addTrace(result *Result, step string, res *engine.Result) {
	for ; res != nil; res = res.Reaction {
		if !res.Committed {
			continue
		}
		for _, ev := range res.Events {
			ch := ev.Change
			result.Trace = append(result.Trace, TraceEvent{
				Step:     step,
				Event:    ch.Event,
				Target:   ch.Target,
				Related:  ch.Related,
				Field:    ch.Field,
				Before:   ch.Before,
				After:    ch.After,
				Reaction: ev.Reaction,
			})
		}
	}
}

func checkExpect(result *Result, index int, step Step, res *engine.Result, events []string) {
	fail := func(format string, args ...any) {
		result.AddError(fmt.Sprintf("steps[%d] %s: %s", index, step.Name, fmt.Sprintf(format, args...)))
	}
	exp := step.Expect

	if exp.Committed != nil && *exp.Committed != res.Committed {
		fail("committed = %v, want %v (%v)", res.Committed, *exp.Committed, res.Err())
	}
	var code string
	if res.Error != nil {
		code = string(res.Error.Code)
	}
	if exp.Error != "" && exp.Error != code {
		fail("error = %q, want %q", code, exp.Error)
	}
	if exp.Violations != nil {
		rules := make([]string, 0, len(res.Violations))
		for _, v := range res.Violations {
			rules = append(rules, v.Rule)
		}
		if !slices.Equal(rules, exp.Violations) {
			fail("violations = %v, want %v", rules, exp.Violations)
		}
	}
	if exp.Events != nil && !slices.Equal(events, exp.Events) {
		fail("events = %v, want %v", events, exp.Events)
	}
}
