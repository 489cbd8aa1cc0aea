package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/resumable/internal/config"
	"github.com/roach88/resumable/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	DB      string
	Dev     bool

	// Logger receives pause and resume diagnostics.
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the resumable CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "resumable",
		Short: "Pause and resume container state in HTML documents",
		Long: `Serialize the object graph of a DOM container into a qwik/json
snapshot embedded in the document, and revive it later from that document
without re-running startup logic.

Environment:
  RESUMABLE_DB          store path (default resumable.db)
  RESUMABLE_DEV         development diagnostics and indented snapshots
  RESUMABLE_LOG_LEVEL   debug, info, warn or error (default warn)
  RESUMABLE_LOG_FORMAT  text or json (default text)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.applyConfig(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output and debug logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "path to SQLite store (overrides RESUMABLE_DB)")
	cmd.PersistentFlags().BoolVar(&opts.Dev, "dev", false, "development diagnostics (overrides RESUMABLE_DEV)")

	cmd.AddCommand(NewPauseCommand(opts))
	cmd.AddCommand(NewResumeCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewStoreCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// applyConfig fills options the flags left unset from the environment and
// builds the logger.
func (o *RootOptions) applyConfig(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if o.DB == "" {
		o.DB = cfg.DB
	}
	if !cmd.Flags().Changed("dev") {
		o.Dev = cfg.Dev
	}
	if o.Verbose {
		cfg.LogLevel = "debug"
	}
	o.Logger, err = cfg.Logger(cmd.ErrOrStderr())
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return nil
}

// logger returns the configured logger, or one that discards everything
// when the command runs without the root command.
func (o *RootOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// openStore opens the configured store.
func (o *RootOptions) openStore() (*store.Store, error) {
	path := o.DB
	if path == "" {
		return nil, NewExitError(ExitCommandError, "no store configured: set --db or RESUMABLE_DB")
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}
	return st, nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
