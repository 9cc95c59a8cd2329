package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ao20/internal/config"
	"github.com/roach88/ao20/internal/ledger"
)

// GenesisSummary describes a validated genesis document.
type GenesisSummary struct {
	File         string `json:"file"`
	Process      string `json:"process"`
	Name         string `json:"name"`
	Ticker       string `json:"ticker"`
	Denomination int    `json:"denomination"`
	Owner        string `json:"owner"`
	Holders      int    `json:"holders"`
	TotalSupply  string `json:"total_supply"`
}

func (s GenesisSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "✓ %s: %s (%s)\n", s.File, s.Name, s.Ticker)
	fmt.Fprintf(&b, "  Process: %s\n", s.Process)
	fmt.Fprintf(&b, "  Owner: %s\n", s.Owner)
	fmt.Fprintf(&b, "  Denomination: %d\n", s.Denomination)
	fmt.Fprintf(&b, "  Holders: %d\n", s.Holders)
	fmt.Fprintf(&b, "  Total Supply: %s", s.TotalSupply)
	return b.String()
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <genesis-file>",
		Short: "Validate a genesis document",
		Long: `Validate a genesis document against the genesis schema without
touching the journal.

The document may be CUE (.cue), YAML (.yaml, .yml) or JSON (.json).
Every schema violation is reported, not just the first.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	g, err := loadGenesis(formatter, path)
	if err != nil {
		return err
	}

	return formatter.Success(summarize(path, g))
}

// loadGenesis loads and fully validates a genesis document, reporting
// problems through formatter.
func loadGenesis(formatter *OutputFormatter, path string) (ledger.Genesis, error) {
	formatter.VerboseLog("Loading genesis from %s", path)

	g, err := config.LoadGenesis(path)
	if err != nil {
		var cfgErr *config.Error
		if errors.As(err, &cfgErr) {
			if formatter.Format == "json" {
				_ = formatter.Error(ErrCodeGenesis, cfgErr.Error(), cfgErr.Problems)
			} else {
				fmt.Fprintf(formatter.Writer, "✗ %s: %d problem(s)\n", path, len(cfgErr.Problems))
				for _, p := range cfgErr.Problems {
					fmt.Fprintf(formatter.Writer, "  %s\n", p)
				}
			}
			return ledger.Genesis{}, WrapExitError(ExitCommandError, "invalid genesis", err)
		}
		_ = formatter.Error(ErrCodeGenesis, err.Error(), nil)
		return ledger.Genesis{}, WrapExitError(ExitCommandError, "failed to load genesis", err)
	}

	if _, err := ledger.New(g); err != nil {
		_ = formatter.Error(ErrCodeGenesis, err.Error(), nil)
		return ledger.Genesis{}, WrapExitError(ExitCommandError, "invalid genesis", err)
	}
	return g, nil
}

func summarize(path string, g ledger.Genesis) GenesisSummary {
	s := GenesisSummary{
		File:         path,
		Process:      g.Process,
		Name:         g.Name,
		Ticker:       g.Ticker,
		Denomination: g.Denomination,
		Owner:        ledger.NilAddress,
		Holders:      len(g.Balances),
	}
	if g.Owner != nil && *g.Owner != "" {
		s.Owner = *g.Owner
	}
	// loadGenesis already built a ledger from g, so this cannot fail.
	if l, err := ledger.New(g); err == nil {
		s.TotalSupply = l.TotalSupply().String()
	}
	return s
}
