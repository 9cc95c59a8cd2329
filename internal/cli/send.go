package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ao20/internal/engine"
	"github.com/roach88/ao20/internal/ir"
)

// SendOptions holds flags for the send command.
type SendOptions struct {
	*RootOptions
	From string
	Tags []string // K=V pairs
	Data string
	ID   string // optional; a journaled ID returns the stored result

	// IDGenerator overrides the engine's message ID generator (for testing).
	IDGenerator engine.IDGenerator
}

// NewSendCommand creates the send command.
func NewSendCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SendOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "send <action>",
		Short: "Submit one message to the ledger",
		Long: `Restore the engine from the journal, submit one message and print
its result.

A rejected message is journaled like any other and exits with status 1.
Passing --id makes the send idempotent: resending a journaled ID prints
the stored result without applying the message again.

Examples:
  ao20 send Balance --from alice
  ao20 send Approve --from alice --tag Spender=<process> --tag Quantity=100
  ao20 send Transfer --from alice --tag Recipient=bob --tag Quantity=100
  ao20 send Transfer --from alice --tag Recipient=bob --tag Quantity=100 --id tx-42`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "caller address (required)")
	_ = cmd.MarkFlagRequired("from")
	cmd.Flags().StringArrayVar(&opts.Tags, "tag", nil, "message tag as Name=Value (repeatable)")
	cmd.Flags().StringVar(&opts.Data, "data", "", "message data")
	cmd.Flags().StringVar(&opts.ID, "id", "", "message ID (default: generated UUIDv7)")

	return cmd
}

func runSend(opts *SendOptions, action string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	tags, err := parseTags(opts.Tags)
	if err != nil {
		_ = formatter.Error(ErrCodeUsage, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid --tag", err)
	}

	var engOpts []engine.Option
	if opts.IDGenerator != nil {
		engOpts = append(engOpts, engine.WithIDGenerator(opts.IDGenerator))
	}
	s, err := startSession(ctx, opts.RootOptions, engOpts...)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return err
	}
	defer s.Close()

	res, err := s.Engine.Submit(ctx, ir.Message{
		ID:     opts.ID,
		From:   opts.From,
		Action: action,
		Tags:   tags,
		Data:   opts.Data,
	})
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to submit message", err)
	}

	formatter.VerboseLog("Message %s journaled at seq %d", res.MessageID, res.Seq)
	return outputResult(formatter, res)
}

// outputResult prints one result. A rejected message yields ExitFailure.
func outputResult(formatter *OutputFormatter, res ir.Result) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status:  "ok",
			Data:    res,
			TraceID: res.MessageID,
		}
		if res.Failed() {
			response.Status = "error"
			response.Error = &CLIError{Code: ErrCodeRejected, Message: res.Error}
		}
		if err := writeJSON(formatter.Writer, response); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(formatter.Writer, formatResult(res))
	}

	if res.Failed() {
		return NewExitError(ExitFailure, res.Error)
	}
	return nil
}

// parseTags turns Name=Value pairs into tags. Values may contain '='.
func parseTags(pairs []string) (ir.Tags, error) {
	tags := make(ir.Tags, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("tag %q: want Name=Value", p)
		}
		if _, dup := tags[name]; dup {
			return nil, fmt.Errorf("tag %q given more than once", name)
		}
		tags[name] = value
	}
	return tags, nil
}
