package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/ags/internal/invariant"
	"github.com/roach88/ags/internal/world"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	World      string                `json:"world"`
	Valid      bool                  `json:"valid"`
	Violations []invariant.Violation `json:"violations,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <world-file>",
		Short: "Check a world file against the invariants",
		Long: `Check a world document against every invariant the configured policy
enables. No database is opened.

Exit codes:
  0 - World is valid
  1 - One or more invariants are broken
  2 - Command error (file not found, parse error)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	w, err := world.Load(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load world", err)
	}
	policy, err := opts.policy()
	if err != nil {
		return err
	}
	formatter.VerboseLog("checking %d entities, %d zones, %d relationships, %d clocks",
		len(w.Entities), len(w.Zones), len(w.Relationships), len(w.Clocks))

	violations := invariant.NewChecker(policy.CheckerOptions()).Check(w)
	result := ValidationResult{World: w.ID, Valid: len(violations) == 0, Violations: violations}
	if !result.Valid {
		_ = formatter.Failure(CodeViolations,
			fmt.Sprintf("world %s breaks %d invariant(s)", w.ID, len(violations)),
			result, func(out io.Writer) { writeViolations(out, violations) })
		return NewExitError(ExitFailure, "world breaks invariants")
	}
	return formatter.Success(result, func(out io.Writer) {
		fmt.Fprintf(out, "World %s is valid\n", w.ID)
	})
}
