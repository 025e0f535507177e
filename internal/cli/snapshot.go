package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/ags/internal/snapshot"
)

// SnapshotTakeResult is the output of snapshot take and restore.
type SnapshotTakeResult struct {
	Snapshot int64  `json:"snapshot"`
	Revision int64  `json:"revision"`
	Hash     string `json:"hash"`
}

// NewSnapshotCommand creates the snapshot command group.
func NewSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Take, list and restore snapshots",
	}
	cmd.AddCommand(newSnapshotTakeCommand(rootOpts))
	cmd.AddCommand(newSnapshotListCommand(rootOpts))
	cmd.AddCommand(newSnapshotRestoreCommand(rootOpts))
	return cmd
}

func newSnapshotTakeCommand(opts *RootOptions) *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:           "take",
		Short:         "Snapshot the stored world",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotTake(cmd.Context(), opts, note, cmd)
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "note stored with the snapshot")
	return cmd
}

func runSnapshotTake(ctx context.Context, opts *RootOptions, note string, cmd *cobra.Command) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openSession(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, s.close(ctx)) }()

	id, err := s.snaps.Snapshot(ctx, note)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to take snapshot", err)
	}
	return outputSnapshot(opts.formatter(cmd), s, id, "Took")
}

func newSnapshotListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List snapshots",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotList(cmd.Context(), opts, cmd)
		},
	}
}

func runSnapshotList(ctx context.Context, opts *RootOptions, cmd *cobra.Command) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openSession(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, s.close(ctx)) }()

	infos, err := s.snaps.List(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list snapshots", err)
	}
	return opts.formatter(cmd).Success(infos, func(out io.Writer) {
		if len(infos) == 0 {
			fmt.Fprintln(out, "No snapshots.")
			return
		}
		for _, info := range infos {
			fmt.Fprintf(out, "%4d  rev %-4d round %-3d %s  %s\n",
				info.ID, info.Revision, info.Round, info.TakenAt, info.Note)
		}
	})
}

func newSnapshotRestoreCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id>",
		Short: "Make a snapshot the stored world",
		Long: `Make a snapshot the stored world. The restored world takes the next
revision; turns logged before the restore no longer replay onto it.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSnapshotID(args[0])
			if err != nil {
				return err
			}
			return runSnapshotRestore(cmd.Context(), opts, id, cmd)
		},
	}
}

func runSnapshotRestore(ctx context.Context, opts *RootOptions, id int64, cmd *cobra.Command) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openSession(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, s.close(ctx)) }()

	if err := s.snaps.Restore(ctx, id); err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			return WrapExitError(ExitCommandError, fmt.Sprintf("snapshot %d not found", id), err)
		}
		return WrapExitError(ExitFailure, "failed to restore snapshot", err)
	}
	return outputSnapshot(opts.formatter(cmd), s, id, "Restored")
}

func outputSnapshot(f *OutputFormatter, s *session, id int64, verb string) error {
	w := s.engine.Current()
	hash, err := w.Hash()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to hash world", err)
	}
	result := SnapshotTakeResult{Snapshot: id, Revision: w.Revision, Hash: hash}
	return f.Success(result, func(out io.Writer) {
		fmt.Fprintf(out, "%s snapshot %d at revision %d\n", verb, result.Snapshot, result.Revision)
		fmt.Fprintf(out, "  hash: %s\n", result.Hash)
	})
}

func parseSnapshotID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid snapshot id %q", s))
	}
	return id, nil
}
