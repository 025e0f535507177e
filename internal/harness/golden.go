package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/ags/internal/ir"
)

// TraceSnapshot is the golden form of a run: step outcomes and the
// published events. The document hash is left out so that golden files
// survive changes to bookkeeping fields such as log timestamps.
type TraceSnapshot struct {
	ScenarioName string
	Steps        []StepOutcome
	Trace        []TraceEvent
}

// document converts the snapshot to a document for canonical encoding.
func (s *TraceSnapshot) document() ir.Object {
	steps := make(ir.Array, 0, len(s.Steps))
	for _, st := range s.Steps {
		obj := ir.Object{
			"name":      ir.String(st.Name),
			"committed": ir.Bool(st.Committed),
			"revision":  ir.Int(st.Revision),
		}
		if st.Reaction != 0 {
			obj["reaction"] = ir.Int(st.Reaction)
		}
		if st.Error != "" {
			obj["error"] = ir.String(st.Error)
		}
		if len(st.Violations) > 0 {
			rules := make(ir.Array, 0, len(st.Violations))
			for _, rule := range st.Violations {
				rules = append(rules, ir.String(rule))
			}
			obj["violations"] = rules
		}
		steps = append(steps, obj)
	}

	trace := make(ir.Array, 0, len(s.Trace))
	for _, ev := range s.Trace {
		obj := ir.Object{
			"step":   ir.String(ev.Step),
			"event":  ir.String(ev.Event),
			"target": ir.String(ev.Target),
		}
		if ev.Related != "" {
			obj["related"] = ir.String(ev.Related)
		}
		if ev.Field != "" {
			obj["field"] = ir.String(ev.Field)
		}
		if ev.Before != nil {
			obj["before"] = ev.Before
		}
		if ev.After != nil {
			obj["after"] = ev.After
		}
		if ev.Reaction {
			obj["reaction"] = ir.Bool(true)
		}
		trace = append(trace, obj)
	}

	return ir.Object{
		"scenario": ir.String(s.ScenarioName),
		"steps":    steps,
		"trace":    trace,
	}
}

// RunWithGolden runs a scenario, fails the test on any expectation or
// assertion error and compares the trace with
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	for _, msg := range result.Errors {
		t.Errorf("%s: %s", scenario.Name, msg)
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares a result's trace with a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Steps:        result.Steps,
		Trace:        result.Trace,
	}
	data, err := ir.MarshalCanonical(snapshot.document())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
