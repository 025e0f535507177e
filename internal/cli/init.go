package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/ags/internal/invariant"
	"github.com/roach88/ags/internal/snapshot"
	"github.com/roach88/ags/internal/world"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Force bool
}

// InitResult is the output of the init command.
type InitResult struct {
	World      string                `json:"world"`
	Revision   int64                 `json:"revision"`
	Hash       string                `json:"hash"`
	Snapshot   int64                 `json:"snapshot"`
	Violations []invariant.Violation `json:"violations,omitempty"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init <world-file>",
		Short: "Load a world fixture into an empty database",
		Long: `Load a world document (.json, .yaml or .yml) into an empty database and
take snapshot 1 of it.

A world that breaks invariants is refused unless --force is given; it is
then stored with standing violations that later batches may repair.

Examples:
  ags init keep.yaml --db ./keep.db
  ags init keep.json --db ./keep --backend pebble`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "store the world even if it breaks invariants")

	return cmd
}

func runInit(ctx context.Context, opts *InitOptions, path string, cmd *cobra.Command) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	w, err := world.Load(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load world", err)
	}
	policy, err := opts.policy()
	if err != nil {
		return err
	}

	violations := invariant.NewChecker(policy.CheckerOptions()).Check(w)
	if len(violations) > 0 && !opts.Force {
		_ = formatter.Failure(CodeViolations,
			fmt.Sprintf("world %s breaks %d invariant(s)", w.ID, len(violations)),
			violations, func(out io.Writer) { writeViolations(out, violations) })
		return NewExitError(ExitFailure, "world breaks invariants")
	}

	b, err := openBackend(opts.RootOptions)
	if err != nil {
		return err
	}
	if _, loadErr := b.LoadWorld(ctx); !errors.Is(loadErr, snapshot.ErrNotFound) {
		_ = b.Close()
		if loadErr != nil {
			return WrapExitError(ExitCommandError, "failed to inspect database", loadErr)
		}
		return NewExitError(ExitCommandError, "database already holds a world")
	}

	s, err := startSession(ctx, opts.RootOptions, cmd, policy, b, w)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, s.close(ctx)) }()

	current := s.engine.Current()
	if err := s.backend.SaveWorld(ctx, current); err != nil {
		return WrapExitError(ExitCommandError, "failed to save world", err)
	}
	id, err := s.snaps.Snapshot(ctx, "init")
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to take snapshot", err)
	}
	hash, err := current.Hash()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to hash world", err)
	}

	result := InitResult{
		World:      current.ID,
		Revision:   current.Revision,
		Hash:       hash,
		Snapshot:   id,
		Violations: violations,
	}
	return formatter.Success(result, func(out io.Writer) {
		fmt.Fprintf(out, "Initialized world %s at revision %d (snapshot %d)\n",
			result.World, result.Revision, result.Snapshot)
		fmt.Fprintf(out, "  hash: %s\n", result.Hash)
		if len(violations) > 0 {
			fmt.Fprintf(out, "  standing violations: %d\n", len(violations))
			writeViolations(out, violations)
		}
	})
}

func writeViolations(out io.Writer, vs []invariant.Violation) {
	for _, v := range vs {
		fmt.Fprintf(out, "  - %s\n", v)
	}
}
