package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ao20/internal/engine"
	"github.com/roach88/ao20/internal/store"
)

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init <genesis-file>",
		Short: "Initialize a journal from a genesis document",
		Long: `Validate a genesis document and write it to the journal.

A journal holds exactly one genesis; init fails if one is already written.

Examples:
  ao20 init ./genesis.yaml
  ao20 init --db ./coin.db ./genesis.cue
  ao20 init --driver postgres --db postgres://localhost/ao20 ./genesis.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runInit(opts *RootOptions, path string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts, cmd)

	g, err := loadGenesis(formatter, path)
	if err != nil {
		return err
	}

	j, err := openJournal(ctx, opts)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer closeJournal(j)

	if err := engine.Initialize(ctx, j, g); err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		if errors.Is(err, store.ErrGenesisExists) {
			return WrapExitError(ExitCommandError, fmt.Sprintf("journal %s is already initialized", opts.DB), err)
		}
		return WrapExitError(ExitCommandError, "failed to initialize journal", err)
	}

	formatter.VerboseLog("Genesis written to %s journal %s", opts.Driver, opts.DB)
	return formatter.Success(summarize(path, g))
}
