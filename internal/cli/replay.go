package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ao20/internal/engine"
)

// ReplayResult holds the replay outcome.
type ReplayResult struct {
	Messages      int     `json:"messages"`
	LastSeq       int64   `json:"last_seq"`
	Diverged      []int64 `json:"diverged"`
	Deterministic bool    `json:"deterministic"`
	TotalSupply   string  `json:"total_supply"`
	StateHash     string  `json:"state_hash"`
	SupplyOK      bool    `json:"supply_ok"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the journal and verify determinism",
		Long: `Rebuild the ledger from the journal's genesis and every journaled
message, and compare each recomputed result with the journaled one.

Replay never writes to the journal.

Exit codes:
  0 - Every message replayed to its journaled result
  1 - Divergence detected, or the rebuilt ledger breaks the supply invariant
  2 - Command error (journal not found, no genesis, etc.)

Examples:
  ao20 replay --db ./coin.db
  ao20 replay --db ./coin.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(rootOpts, cmd)
		},
	}

	return cmd
}

func runReplay(opts *RootOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts, cmd)

	j, err := openJournal(ctx, opts)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer closeJournal(j)

	report, err := engine.Replay(ctx, j)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to replay journal", err)
	}

	result := ReplayResult{
		Messages:      report.Messages,
		LastSeq:       report.LastSeq,
		Diverged:      report.Diverged,
		Deterministic: report.OK(),
		TotalSupply:   report.Ledger.TotalSupply().String(),
		SupplyOK:      report.Ledger.CheckSupply() == nil,
	}
	if result.StateHash, err = report.Ledger.StateHash(); err != nil {
		return WrapExitError(ExitCommandError, "failed to hash ledger state", err)
	}

	if opts.Format == "json" {
		return outputReplayJSON(formatter, result)
	}
	return outputReplayText(formatter, result)
}

func replayFailure(result ReplayResult) string {
	if !result.Deterministic {
		return fmt.Sprintf("replay diverged at seq %v", result.Diverged)
	}
	if !result.SupplyOK {
		return "total supply does not equal the sum of balances"
	}
	return ""
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(formatter *OutputFormatter, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	failure := replayFailure(result)
	if failure != "" {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeDiverged,
			Message: failure,
		}
	}

	if err := writeJSON(formatter.Writer, response); err != nil {
		return err
	}

	if failure != "" {
		return NewExitError(ExitFailure, failure)
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(formatter *OutputFormatter, result ReplayResult) error {
	w := formatter.Writer

	fmt.Fprintf(w, "Replayed %d message(s) through seq %d\n", result.Messages, result.LastSeq)
	fmt.Fprintf(w, "  Total Supply: %s\n", result.TotalSupply)
	if formatter.Verbose {
		fmt.Fprintf(w, "  State Hash: %s\n", result.StateHash)
	}
	fmt.Fprintln(w)

	failure := replayFailure(result)
	if failure == "" {
		fmt.Fprintln(w, "✓ All results verified deterministic")
		return nil
	}

	for _, seq := range result.Diverged {
		fmt.Fprintf(w, "✗ seq %d: recomputed result differs from journal\n", seq)
	}
	if !result.SupplyOK {
		fmt.Fprintln(w, "✗ supply invariant broken")
	}
	fmt.Fprintln(w, "✗ Determinism verification failed")
	return NewExitError(ExitFailure, failure)
}
