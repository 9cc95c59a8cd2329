package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"
)

// Environment fallbacks for the journal flags.
const (
	EnvDB     = "AO20_DB"
	EnvDriver = "AO20_DRIVER"
)

// Journal drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultDB is the SQLite journal used when neither --db nor AO20_DB is set.
const DefaultDB = "ao20.db"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	DB      string // SQLite path or PostgreSQL DSN
	Driver  string // "sqlite" | "postgres"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// ValidDrivers defines the allowed journal drivers.
var ValidDrivers = []string{DriverSQLite, DriverPostgres}

// NewRootCommand creates the root command for the ao20 CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "ao20",
		Short: "ao20 - journaled token ledger",
		Long: `A token ledger with a single-writer engine and an append-only journal.

Every accepted message is journaled with its result and notices, so the
ledger can be rebuilt and verified by replay at any time.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			opts.resolve()
			if !slices.Contains(ValidDrivers, opts.Driver) {
				return fmt.Errorf("invalid driver %q: must be one of %v", opts.Driver, ValidDrivers)
			}
			setupLogging(cmd.ErrOrStderr(), opts.Verbose)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "journal location: SQLite path or PostgreSQL DSN (default $"+EnvDB+" or "+DefaultDB+")")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", "", "journal driver (sqlite|postgres) (default $"+EnvDriver+" or sqlite)")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewSendCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewResultsCommand(opts))
	cmd.AddCommand(NewNoticesCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// resolve fills unset journal options from the environment, then from
// defaults.
func (o *RootOptions) resolve() {
	if o.DB == "" {
		o.DB = os.Getenv(EnvDB)
	}
	if o.DB == "" {
		o.DB = DefaultDB
	}
	if o.Driver == "" {
		o.Driver = os.Getenv(EnvDriver)
	}
	if o.Driver == "" {
		o.Driver = DriverSQLite
	}
}

// setupLogging installs the process-wide slog handler.
func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
