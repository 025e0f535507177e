package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/ags/internal/ir"
	"github.com/roach88/ags/internal/snapshot"
)

// DiffResult is the output of the diff command. To is zero when the diff
// runs against the stored world.
type DiffResult struct {
	From    int64   `json:"from"`
	To      int64   `json:"to,omitempty"`
	Changes ir.Diff `json:"changes"`
}

// NewDiffCommand creates the diff command.
func NewDiffCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <from-snapshot> [to-snapshot]",
		Short: "Show fact changes between snapshots",
		Long: `Show the fact changes between two snapshots, or between a snapshot and
the stored world. Revision and scene log bookkeeping are not facts and are
left out.

Examples:
  ags diff 1 --db ./keep.db
  ags diff 1 3 --db ./keep.db --format json`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseSnapshotID(args[0])
			if err != nil {
				return err
			}
			var to int64
			if len(args) == 2 {
				if to, err = parseSnapshotID(args[1]); err != nil {
					return err
				}
			}
			return runDiff(cmd.Context(), rootOpts, from, to, cmd)
		},
	}
	return cmd
}

func runDiff(ctx context.Context, opts *RootOptions, from, to int64, cmd *cobra.Command) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openSession(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, s.close(ctx)) }()

	var changes ir.Diff
	if to == 0 {
		changes, err = s.snaps.DiffSince(ctx, from)
	} else {
		changes, err = diffSnapshots(ctx, s.snaps, from, to)
	}
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			return WrapExitError(ExitCommandError, "snapshot not found", err)
		}
		return WrapExitError(ExitCommandError, "failed to diff", err)
	}

	result := DiffResult{From: from, To: to, Changes: changes}
	return opts.formatter(cmd).Success(result, func(out io.Writer) { writeDiff(out, changes) })
}

func diffSnapshots(ctx context.Context, snaps *snapshot.Store, from, to int64) (ir.Diff, error) {
	a, err := snaps.Get(ctx, from)
	if err != nil {
		return nil, err
	}
	b, err := snaps.Get(ctx, to)
	if err != nil {
		return nil, err
	}
	return snapshot.Diff(a.World, b.World)
}

func writeDiff(out io.Writer, d ir.Diff) {
	if d.Empty() {
		fmt.Fprintln(out, "No changes.")
		return
	}
	for _, c := range d {
		switch c.Op {
		case ir.OpAdd:
			fmt.Fprintf(out, "+ %s %s\n", c.Path, valueText(c.After))
		case ir.OpRemove:
			fmt.Fprintf(out, "- %s %s\n", c.Path, valueText(c.Before))
		default:
			fmt.Fprintf(out, "~ %s %s -> %s\n", c.Path, valueText(c.Before), valueText(c.After))
		}
	}
}

func valueText(v ir.Value) string {
	if v == nil {
		return "null"
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return "?"
	}
	return string(data)
}
