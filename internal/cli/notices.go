package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ao20/internal/ir"
)

// NoticesOptions holds flags for the notices command.
type NoticesOptions struct {
	PageOptions
	Target string // optional - filter to one recipient
}

// NoticesPage is one page of the outbound log.
type NoticesPage struct {
	Notices []ir.NoticeRecord `json:"notices"`
	Next    int64             `json:"next"`
	More    bool              `json:"more"`
}

// NewNoticesCommand creates the notices command.
func NewNoticesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NoticesOptions{PageOptions: PageOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "notices",
		Short: "Page the outbound notice log",
		Long: `Page through journaled notices in emission order.

A page never splits one message's notices, so it may hold a few more
than --limit. --target keeps only notices addressed to one recipient;
the filter applies after paging, so a filtered page can be short or
empty while more remain.

Examples:
  ao20 notices --db ./coin.db
  ao20 notices --db ./coin.db --target bob --after 20`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNotices(opts, cmd)
		},
	}
	opts.bind(cmd)
	cmd.Flags().StringVar(&opts.Target, "target", "", "only notices addressed to this recipient")

	return cmd
}

func runNotices(opts *NoticesOptions, cmd *cobra.Command) error {
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

	records, err := j.ReadNotices(ctx, opts.After, opts.Limit)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read notices", err)
	}

	page := NoticesPage{
		Notices: filterNotices(records, opts.Target),
		Next:    opts.After,
		More:    len(records) >= opts.Limit,
	}
	if len(records) > 0 {
		page.Next = records[len(records)-1].Seq
	}

	if opts.Format == "json" {
		return formatter.Success(page)
	}

	w := cmd.OutOrStdout()
	if len(page.Notices) == 0 {
		fmt.Fprintln(w, "No notices.")
	}
	for _, n := range page.Notices {
		fmt.Fprintf(w, "#%d.%d %s -> %s\n", n.Seq, n.Index, n.Action(), formatOutbound(n.Outbound))
	}
	if page.More {
		fmt.Fprintf(w, "\nnext: --after %d\n", page.Next)
	}
	return nil
}

// filterNotices keeps records addressed to target. An empty target keeps
// everything.
func filterNotices(records []ir.NoticeRecord, target string) []ir.NoticeRecord {
	if target == "" {
		return records
	}
	out := []ir.NoticeRecord{}
	for _, n := range records {
		if n.Target == target {
			out = append(out, n)
		}
	}
	return out
}
