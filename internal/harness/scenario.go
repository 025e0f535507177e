package harness

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ags/internal/config"
	"github.com/roach88/ags/internal/effect"
	"github.com/roach88/ags/internal/engine"
)

// BuiltinKeep names the shared test world from testutil.NewKeep.
const BuiltinKeep = "keep"

// Scenario is a sequence of effect batches applied to a starting world,
// with expectations on each batch and assertions on the end state.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// World is BuiltinKeep or a world file path. Relative paths resolve
	// against the scenario file's directory.
	World string `yaml:"world"`

	// Policy holds policy fields with the names the CUE policy file uses.
	Policy map[string]any `yaml:"policy,omitempty"`

	// Seed is the dice seed for steps that do not set their own.
	Seed int64 `yaml:"seed,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`

	dir string
}

// Step is one effect batch.
type Step struct {
	Name             string           `yaml:"name"`
	Actor            string           `yaml:"actor,omitempty"`
	NonTransactional bool             `yaml:"non_transactional,omitempty"`
	Seed             *int64           `yaml:"seed,omitempty"`
	Hint             string           `yaml:"hint,omitempty"`
	Effects          []map[string]any `yaml:"effects"`
	Expect           *Expect          `yaml:"expect,omitempty"`
}

// Expect checks the outcome of a step. Unset fields are not checked.
type Expect struct {
	Committed *bool `yaml:"committed,omitempty"`
	// Error is the handler error code.
	Error string `yaml:"error,omitempty"`
	// Violations are the rules of the violations that refused the batch.
	Violations []string `yaml:"violations,omitempty"`
	// Events are the event names of the step and its reaction, in order.
	Events []string `yaml:"events,omitempty"`
}

// Assertion checks the end state or the trace.
type Assertion struct {
	Type string `yaml:"type"`

	// world_field
	Path   string `yaml:"path,omitempty"`
	Absent bool   `yaml:"absent,omitempty"`

	// world_field, disposition, visible
	Equals any `yaml:"equals,omitempty"`

	// disposition
	Source string `yaml:"source,omitempty"`
	Target string `yaml:"target,omitempty"`

	// visible
	Observer string `yaml:"observer,omitempty"`
	Record   string `yaml:"record,omitempty"`

	// trace_contains, trace_count, trace_order
	Event  string   `yaml:"event,omitempty"`
	Events []string `yaml:"events,omitempty"`
	Count  *int     `yaml:"count,omitempty"`

	// standing_violations
	Rules []string `yaml:"rules,omitempty"`
}

// Assertion type constants.
const (
	AssertWorldField         = "world_field"
	AssertDisposition        = "disposition"
	AssertVisible            = "visible"
	AssertTraceContains      = "trace_contains"
	AssertTraceOrder         = "trace_order"
	AssertTraceCount         = "trace_count"
	AssertStandingViolations = "standing_violations"
	AssertReplay             = "replay"
)

// LoadScenario reads and validates a scenario file. Unknown fields are
// rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	s.dir = filepath.Dir(path)
	return s, nil
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Description == "" {
		return errors.New("description is required")
	}
	if s.World == "" {
		return errors.New("world is required")
	}
	if len(s.Steps) == 0 {
		return errors.New("steps list is required and must be non-empty")
	}
	for i, step := range s.Steps {
		if step.Name == "" {
			return fmt.Errorf("steps[%d]: name is required", i)
		}
		if len(step.Effects) == 0 {
			return fmt.Errorf("steps[%d]: effects list is required and must be non-empty", i)
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertWorldField:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for world_field", index)
		}
		if a.Equals == nil && !a.Absent {
			return fmt.Errorf("assertions[%d]: equals or absent is required for world_field", index)
		}
	case AssertDisposition:
		if a.Source == "" || a.Target == "" || a.Equals == nil {
			return fmt.Errorf("assertions[%d]: source, target and equals are required for disposition", index)
		}
	case AssertVisible:
		if a.Observer == "" || a.Record == "" {
			return fmt.Errorf("assertions[%d]: observer and record are required for visible", index)
		}
		if _, ok := a.Equals.(bool); !ok {
			return fmt.Errorf("assertions[%d]: equals must be true or false for visible", index)
		}
	case AssertTraceContains:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_count", index)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: a non-negative count is required for trace_count", index)
		}
	case AssertStandingViolations, AssertReplay:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// policy decodes the scenario policy through the CUE schema. Policy JSON
// is valid CUE.
func (s *Scenario) policy() (config.Policy, error) {
	if len(s.Policy) == 0 {
		return config.DefaultPolicy(), nil
	}
	src, err := json.Marshal(s.Policy)
	if err != nil {
		return config.Policy{}, fmt.Errorf("encode policy: %w", err)
	}
	return config.ParsePolicy(src, s.Name+".policy")
}

// batch converts a step into an engine batch.
func (st Step) batch(defaultSeed int64) (engine.Batch, error) {
	atoms := make([]effect.Atom, 0, len(st.Effects))
	for i, raw := range st.Effects {
		data, err := json.Marshal(raw)
		if err != nil {
			return engine.Batch{}, fmt.Errorf("effect %d: %w", i, err)
		}
		a, err := effect.Unmarshal(data)
		if err != nil {
			return engine.Batch{}, fmt.Errorf("effect %d: %w", i, err)
		}
		atoms = append(atoms, a)
	}
	seed := defaultSeed
	if st.Seed != nil {
		seed = *st.Seed
	}
	return engine.Batch{
		Effects:          atoms,
		Actor:            st.Actor,
		NonTransactional: st.NonTransactional,
		Seed:             &seed,
		Hint:             st.Hint,
	}, nil
}
