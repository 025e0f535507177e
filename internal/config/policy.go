package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/ags/internal/effect"
	"github.com/roach88/ags/internal/engine"
	"github.com/roach88/ags/internal/invariant"
	"github.com/roach88/ags/internal/visibility"
)

//go:embed policy.cue
var policySchema string

// Policy holds the engine rules a table may tune.
type Policy struct {
	Bounds              effect.Bounds `json:"bounds"`
	ExitSymmetry        bool          `json:"exit_symmetry"`
	AuditSample         int           `json:"audit_sample"`
	MaxReactionEffects  int           `json:"max_reaction_effects"`
	FearGuardPenalty    int           `json:"fear_guard_penalty"`
	LogLimit            int           `json:"log_limit"`
	HideInventoryCounts bool          `json:"hide_inventory_counts"`
}

// DefaultPolicy matches the defaults in the CUE schema.
func DefaultPolicy() Policy {
	return Policy{
		Bounds:             effect.BoundsClamp,
		AuditSample:        invariant.DefaultAuditSample,
		MaxReactionEffects: engine.DefaultMaxReactionEffects,
		FearGuardPenalty:   engine.DefaultFearGuardPenalty,
		LogLimit:           engine.DefaultLogLimit,
	}
}

// PolicyError reports an invalid policy file with its source position.
type PolicyError struct {
	Message string
	Pos     token.Pos
}

func (e *PolicyError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// LoadPolicy reads a CUE policy file. An empty path returns the defaults.
func LoadPolicy(path string) (Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("failed to read policy file: %w", err)
	}
	return ParsePolicy(src, path)
}

// ParsePolicy compiles src, unifies it with the embedded schema and
// decodes the result. Unknown fields and out-of-range values are errors.
func ParsePolicy(src []byte, filename string) (Policy, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(policySchema, cue.Filename("policy.cue"))
	if err := schema.Err(); err != nil {
		return Policy{}, fmt.Errorf("policy schema: %w", err)
	}

	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return Policy{}, formatCUEError(err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Policy")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Policy{}, formatCUEError(err)
	}

	var p Policy
	if err := unified.Decode(&p); err != nil {
		return Policy{}, formatCUEError(err)
	}
	return p, nil
}

// EngineOptions returns the engine options this policy implies.
func (p Policy) EngineOptions() []engine.EngineOption {
	return []engine.EngineOption{
		engine.WithBounds(p.Bounds),
		engine.WithChecker(invariant.NewChecker(p.CheckerOptions())),
		engine.WithMaxReactionEffects(p.MaxReactionEffects),
		engine.WithLogLimit(p.LogLimit),
		engine.WithRules(engine.DefaultRules(p.FearGuardPenalty)...),
	}
}

// CheckerOptions returns the invariant checker settings.
func (p Policy) CheckerOptions() invariant.Options {
	return invariant.Options{
		ExitSymmetry: p.ExitSymmetry,
		AuditSample:  p.AuditSample,
		Redaction:    p.Redaction(),
	}
}

// Redaction returns the redaction policy.
func (p Policy) Redaction() visibility.Policy {
	return visibility.Policy{HideInventoryCounts: p.HideInventoryCounts}
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	pe := &PolicyError{Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		pe.Pos = positions[0]
	}
	return pe
}
