package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/ags/internal/effect"
	"github.com/roach88/ags/internal/engine"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	*RootOptions
	Actor            string
	Hint             string
	Seed             int64
	NonTransactional bool
	Snapshot         string
}

// batchFile is the on-disk form of an effect batch. A file holding a bare
// list is read as the effects of an otherwise empty batch.
type batchFile struct {
	Actor            string            `json:"actor,omitempty"`
	Hint             string            `json:"hint,omitempty"`
	NonTransactional bool              `json:"non_transactional,omitempty"`
	Seed             *int64            `json:"seed,omitempty"`
	Effects          []json.RawMessage `json:"effects"`
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply <effects-file>",
		Short: "Apply an effect batch to the stored world",
		Long: `Apply an effect batch (JSON or YAML) to the stored world.

The file is either a list of effect atoms or an object with effects, actor,
hint, seed and non_transactional fields. Flags override the file.

Exit codes:
  0 - Batch committed
  1 - Batch rolled back (handler error or invariant violation)
  2 - Command error

Examples:
  ags apply strike.yaml --db ./keep.db
  ags apply strike.yaml --db ./keep.db --seed 42 --snapshot "after the strike"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Actor, "actor", "", "acting entity id")
	cmd.Flags().StringVar(&opts.Hint, "hint", "", "narration hint for the log")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "dice seed (default: random)")
	cmd.Flags().BoolVar(&opts.NonTransactional, "non-transactional", false, "commit partial results and standing violations")
	cmd.Flags().StringVar(&opts.Snapshot, "snapshot", "", "take a snapshot with this note after a commit")

	return cmd
}

func runApply(ctx context.Context, opts *ApplyOptions, path string, cmd *cobra.Command) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	batch, err := loadBatch(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load effects", err)
	}
	flags := cmd.Flags()
	if flags.Changed("actor") {
		batch.Actor = opts.Actor
	}
	if flags.Changed("hint") {
		batch.Hint = opts.Hint
	}
	if flags.Changed("seed") {
		seed := opts.Seed
		batch.Seed = &seed
	}
	if opts.NonTransactional {
		batch.NonTransactional = true
	}

	s, err := openSession(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, s.close(ctx)) }()

	formatter.VerboseLog("applying %d effect(s) to revision %d", len(batch.Effects), s.engine.Current().Revision)
	res, err := s.engine.Apply(ctx, batch)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to apply batch", err)
	}

	if !res.Committed {
		_ = formatter.Failure(CodeRolledBack, res.Err().Error(), res, func(out io.Writer) {
			writeResult(out, res, "")
		})
		return NewExitError(ExitFailure, "batch rolled back")
	}

	if opts.Snapshot != "" {
		id, err := s.snaps.Snapshot(ctx, opts.Snapshot)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to take snapshot", err)
		}
		formatter.VerboseLog("snapshot %d taken", id)
	}
	return formatter.Success(res, func(out io.Writer) { writeResult(out, res, "") })
}

// loadBatch reads an effects file.
func loadBatch(path string) (engine.Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return engine.Batch{}, err
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".yaml" || ext == ".yml" {
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return engine.Batch{}, fmt.Errorf("parse YAML: %w", err)
		}
		if data, err = json.Marshal(raw); err != nil {
			return engine.Batch{}, fmt.Errorf("convert YAML: %w", err)
		}
	}
	return parseBatch(data)
}

func parseBatch(data []byte) (engine.Batch, error) {
	var file batchFile
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &file.Effects); err != nil {
			return engine.Batch{}, fmt.Errorf("parse effects: %w", err)
		}
	} else if err := json.Unmarshal(data, &file); err != nil {
		return engine.Batch{}, fmt.Errorf("parse batch: %w", err)
	}
	if len(file.Effects) == 0 {
		return engine.Batch{}, errors.New("batch has no effects")
	}
	atoms, err := effect.UnmarshalAll(file.Effects)
	if err != nil {
		return engine.Batch{}, err
	}
	return engine.Batch{
		Effects:          atoms,
		Actor:            file.Actor,
		Hint:             file.Hint,
		NonTransactional: file.NonTransactional,
		Seed:             file.Seed,
	}, nil
}

func writeResult(out io.Writer, res *engine.Result, indent string) {
	if res.Committed {
		fmt.Fprintf(out, "%sCommitted revision %d (turn %s, seed %d)\n", indent, res.Revision, res.TurnID, res.Seed)
	} else {
		fmt.Fprintf(out, "%sRolled back at revision %d (turn %s, seed %d)\n", indent, res.Revision, res.TurnID, res.Seed)
	}
	for _, r := range res.Rolls {
		fmt.Fprintf(out, "%s  roll %s %v = %d\n", indent, r.Expr, r.Dice, r.Total)
	}
	if res.Error != nil {
		fmt.Fprintf(out, "%s  error: %s\n", indent, res.Error)
	}
	for _, v := range res.Violations {
		fmt.Fprintf(out, "%s  violation: %s\n", indent, v)
	}
	if res.Hint != "" {
		fmt.Fprintf(out, "%s  %s\n", indent, res.Hint)
	}
	if res.ReactionsDropped > 0 {
		fmt.Fprintf(out, "%s  reactions dropped: %d\n", indent, res.ReactionsDropped)
	}
	if res.Reaction != nil {
		fmt.Fprintf(out, "%s  reaction:\n", indent)
		writeResult(out, res.Reaction, indent+"    ")
	}
}
