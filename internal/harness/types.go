package harness

import (
	"github.com/roach88/ags/internal/ir"
	"github.com/roach88/ags/internal/world"
)

// TraceEvent is one published event, tagged with the step that caused it.
type TraceEvent struct {
	Step     string   `json:"step"`
	Event    string   `json:"event"`
	Target   string   `json:"target"`
	Related  string   `json:"related,omitempty"`
	Field    string   `json:"field,omitempty"`
	Before   ir.Value `json:"before,omitempty"`
	After    ir.Value `json:"after,omitempty"`
	Reaction bool     `json:"reaction,omitempty"`
}

// StepOutcome summarizes one applied batch.
type StepOutcome struct {
	Name      string `json:"name"`
	Committed bool   `json:"committed"`
	Revision  int64  `json:"revision"`
	// Reaction is the revision committed by the reaction batch, or zero.
	Reaction   int64    `json:"reaction,omitempty"`
	Error      string   `json:"error,omitempty"`
	Violations []string `json:"violations,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expect clause and assertion matched.
	Pass   bool          `json:"pass"`
	Steps  []StepOutcome `json:"steps"`
	Trace  []TraceEvent  `json:"trace"`
	Errors []string      `json:"errors,omitempty"`
	Hash   string        `json:"hash"`

	// World is the final committed world.
	World *world.World `json:"-"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepOutcome{},
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Events returns the event names of the trace in order.
func (r *Result) Events() []string {
	names := make([]string, 0, len(r.Trace))
	for _, ev := range r.Trace {
		names = append(names, ev.Event)
	}
	return names
}
