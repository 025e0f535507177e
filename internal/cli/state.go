package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/ags/internal/ir"
	"github.com/roach88/ags/internal/visibility"
)

// StateOptions holds flags for the state command.
type StateOptions struct {
	*RootOptions
	Observer string
	Entities []string
	Zone     string
	Fields   []string
	Clocks   bool
}

// NewStateCommand creates the state command.
func NewStateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show the stored world as an observer sees it",
		Long: `Print the redacted projection of the stored world for one observer.

At least one --entity or a --zone is required. The observer "gm" sees
everything and must only be used for GM tooling.

Examples:
  ags state --db ./keep.db --observer pc.arin --zone courtyard
  ags state --db ./keep.db --observer pc.arin --entity npc.guard.01 --fields zone,stats`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runState(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Observer, "observer", "", "observer entity id (required)")
	_ = cmd.MarkFlagRequired("observer")
	cmd.Flags().StringSliceVar(&opts.Entities, "entity", nil, "entity ids to project")
	cmd.Flags().StringVar(&opts.Zone, "zone", "", "project the visible occupants of this zone")
	cmd.Flags().StringSliceVar(&opts.Fields, "fields", nil, "entity field allow-list")
	cmd.Flags().BoolVar(&opts.Clocks, "clocks", false, "include the scene's active clocks")

	return cmd
}

func runState(ctx context.Context, opts *StateOptions, cmd *cobra.Command) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	s, err := openSession(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, s.close(ctx)) }()

	svc := s.stateService()
	state, err := svc.GetState(visibility.ProjectionSpec{
		Observer:  opts.Observer,
		EntityIDs: opts.Entities,
		Zone:      opts.Zone,
		Fields:    opts.Fields,
		Clocks:    opts.Clocks,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid projection", err)
	}
	return formatter.Success(state, func(out io.Writer) { writeState(out, state) })
}

func writeState(out io.Writer, st *visibility.State) {
	fmt.Fprintf(out, "Observer %s at revision %d, round %d\n", st.Observer, st.Revision, st.Round)
	if st.Actor != "" {
		fmt.Fprintf(out, "  acting: %s\n", st.Actor)
	}
	if st.Zone != nil {
		writeProjection(out, "zone", *st.Zone)
	}
	for _, p := range st.Entities {
		writeProjection(out, "entity", p)
	}
	for _, p := range st.Clocks {
		writeProjection(out, "clock", p)
	}
}

func writeProjection(out io.Writer, label string, p visibility.Projection) {
	if !p.Visible {
		fmt.Fprintf(out, "  %s %s: not visible\n", label, p.ID)
		return
	}
	fields, err := ir.MarshalCanonical(p.Fields)
	if err != nil {
		fields = []byte("?")
	}
	fmt.Fprintf(out, "  %s %s (%s, %s) %s\n", label, p.ID, p.Kind, p.Name, fields)
}
