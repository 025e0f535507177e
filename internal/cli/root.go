// Package cli implements the ags command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/ags/internal/config"
	"github.com/roach88/ags/internal/ir"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Config   string // CUE policy file
	DB       string
	Backend  string
	LogLevel string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the ags CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "ags",
		Short: "AGS - authoritative game state",
		Long: `Hold the committed state of a tabletop scene, apply effect batches to it
transactionally and serve redacted views of it.

Flags override the AGS_DB, AGS_BACKEND, AGS_POLICY, AGS_FORMAT and
AGS_LOG_LEVEL environment variables.`,
		Version:       ir.EngineVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.applyEnv(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "CUE policy file")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "SQLite file or Pebble directory")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "storage backend (sqlite|pebble|memory)")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewApplyCommand(opts))
	cmd.AddCommand(NewStateCommand(opts))
	cmd.AddCommand(NewSnapshotCommand(opts))
	cmd.AddCommand(NewDiffCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))

	return cmd
}

// applyEnv fills every flag the user did not set from the environment and
// validates the result.
func (o *RootOptions) applyEnv(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid environment", err)
	}
	flags := cmd.Flags()
	if !flags.Changed("format") {
		o.Format = cfg.Format
	}
	if !flags.Changed("config") {
		o.Config = cfg.Policy
	}
	if !flags.Changed("db") {
		o.DB = cfg.DB
	}
	if !flags.Changed("backend") {
		o.Backend = cfg.Backend
	}
	o.LogLevel = cfg.LogLevel

	if !slices.Contains(ValidFormats, o.Format) {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}
	return nil
}

// formatter returns the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// logger returns a text logger on stderr. --verbose forces debug level.
func (o *RootOptions) logger(w io.Writer) *slog.Logger {
	level, err := config.ParseLevel(o.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// policy loads the --config policy, or the defaults.
func (o *RootOptions) policy() (config.Policy, error) {
	p, err := config.LoadPolicy(o.Config)
	if err != nil {
		return config.Policy{}, WrapExitError(ExitCommandError, "invalid policy", err)
	}
	return p, nil
}
