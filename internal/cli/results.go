package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ao20/internal/ir"
)

// DefaultPageSize is the --limit default for the paging commands.
const DefaultPageSize = 100

// PageOptions holds the paging flags shared by results and notices.
type PageOptions struct {
	*RootOptions
	After int64
	Limit int
}

func (o *PageOptions) bind(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&o.After, "after", 0, "return records with seq greater than this")
	cmd.Flags().IntVar(&o.Limit, "limit", DefaultPageSize, "maximum records per page")
}

func (o *PageOptions) validate() error {
	if o.After < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--after must be >= 0, got %d", o.After))
	}
	if o.Limit <= 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--limit must be > 0, got %d", o.Limit))
	}
	return nil
}

// ResultsPage is one page of journaled results.
//
// Next is the cursor for the following page; it equals the request's
// after when the page is empty.
type ResultsPage struct {
	Results []ir.Result `json:"results"`
	Next    int64       `json:"next"`
	More    bool        `json:"more"`
}

// NewResultsCommand creates the results command.
func NewResultsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PageOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "results",
		Short: "Page journaled results",
		Long: `Page through journaled results in seq order, each with its reply,
error and notices.

Pass the printed next cursor as --after to fetch the following page.

Examples:
  ao20 results --db ./coin.db
  ao20 results --db ./coin.db --after 100 --limit 50 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResults(opts, cmd)
		},
	}
	opts.bind(cmd)

	return cmd
}

func runResults(opts *PageOptions, cmd *cobra.Command) error {
	if err := opts.validate(); err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	j, err := openJournal(ctx, opts.RootOptions)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer closeJournal(j)

	results, err := j.ReadResults(ctx, opts.After, opts.Limit)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read results", err)
	}

	page := ResultsPage{Results: results, Next: opts.After, More: len(results) == opts.Limit}
	if len(results) > 0 {
		page.Next = results[len(results)-1].Seq
	}

	if opts.Format == "json" {
		return formatter.Success(page)
	}

	w := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(w, "No results.")
		return nil
	}
	for _, res := range results {
		fmt.Fprintln(w, formatResult(res))
	}
	if page.More {
		fmt.Fprintf(w, "\nnext: --after %d\n", page.Next)
	}
	return nil
}
