package invariant

import (
	"errors"
	"fmt"
	"strings"
)

// Rule names.
const (
	RuleHPRange           = "hp_range"
	RuleGuardRange        = "guard_range"
	RuleResourceRange     = "resource_range"
	RuleEntityZone        = "entity_zone"
	RuleItemStats         = "item_stats"
	RuleClockRange        = "clock_range"
	RuleSceneClock        = "scene_clock"
	RuleTurnOrder         = "turn_order"
	RuleScene             = "scene"
	RuleDanglingReference = "dangling_reference"
	RuleRelationshipRange = "relationship_range"
	RuleInventoryItem     = "inventory_item"
	RuleExitTarget        = "exit_target"
	RuleExitSymmetry      = "exit_symmetry"
	RuleVisibilityLevel   = "visibility_level"
	RuleGMOnlyLeak        = "gm_only_leak"
)

// Violation is one broken invariant.
type Violation struct {
	Rule    string `json:"rule"`
	Record  string `json:"record"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s(%s): %s", v.Rule, v.Record, v.Message)
}

// Error wraps a non-empty violation list as an error.
type Error struct {
	Violations []Violation
}

// Error implements the error interface.
func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return fmt.Sprintf("%d invariant violation(s): %s", len(e.Violations), strings.Join(parts, "; "))
}

// AsError returns nil for an empty list and an *Error otherwise.
func AsError(vs []Violation) error {
	if len(vs) == 0 {
		return nil
	}
	return &Error{Violations: vs}
}

// IsViolation returns true if err is or wraps an *Error.
func IsViolation(err error) bool {
	var e *Error
	return errors.As(err, &e)
}
