package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/ao20/internal/engine"
	"github.com/roach88/ao20/internal/ir"
	"github.com/roach88/ao20/internal/observability"
)

// maxLineSize bounds one JSON-lines request.
const maxLineSize = 1 << 20

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	MetricsAddr string

	// Metrics overrides the recorder built for --metrics-addr (for testing).
	Metrics *observability.Metrics

	// IDGenerator allows overriding the message ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator engine.IDGenerator
}

// LineError is written in place of a result when a request line cannot be
// submitted.
type LineError struct {
	Line  int    `json:"line"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Serve messages from stdin",
		Long: `Restore the engine from the journal and serve messages read from stdin,
one JSON object per line:

  {"id":"ap-1","from":"alice","action":"Approve","tags":{"Spender":"<process>","Quantity":"5"}}
  {"id":"tx-1","from":"alice","action":"Transfer","tags":{"Recipient":"bob","Quantity":"5"}}

A Transfer spends the sender's allowance to the process address.

Each message's result is written to stdout as one JSON line, in input
order. A line that cannot be parsed or journaled yields an error object
with its line number. The id field is optional.

The engine stops at EOF or on SIGINT/SIGTERM.

Examples:
  ao20 run --db ./coin.db < requests.jsonl
  ao20 run --db ./coin.db --metrics-addr :9090`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")

	return cmd
}

func runEngine(opts *RunOptions, cmd *cobra.Command) error {
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	var engOpts []engine.Option
	if opts.IDGenerator != nil {
		engOpts = append(engOpts, engine.WithIDGenerator(opts.IDGenerator))
	}

	metrics := opts.Metrics
	if metrics == nil && opts.MetricsAddr != "" {
		metrics = observability.NewMetrics(observability.DefaultNamespace)
	}
	if metrics != nil {
		engOpts = append(engOpts, engine.WithMetrics(metrics))
	}
	if opts.MetricsAddr != "" {
		srv := metrics.Server(opts.MetricsAddr)
		go func() {
			slog.Info("serving metrics", "addr", opts.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	s, err := startSession(ctx, opts.RootOptions, engOpts...)
	if err != nil {
		return err
	}
	defer s.Close()

	slog.Info("engine started", "driver", opts.Driver, "db", opts.DB, "seq", s.Engine.LastSeq())

	formatter := newFormatter(opts.RootOptions, cmd)
	if err := serveLines(ctx, s.Engine, cmd.InOrStdin(), formatter); err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("engine stopped by signal")
			return nil
		}
		return WrapExitError(ExitFailure, "engine error", err)
	}

	slog.Info("engine stopped gracefully", "seq", s.Engine.LastSeq())
	return nil
}

// serveLines submits each request line in order and writes one output line
// per request. It returns at EOF, on a read error, or when ctx is done.
func serveLines(ctx context.Context, eng *engine.Engine, r io.Reader, formatter *OutputFormatter) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	n := 0
	for {
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok = <-lines:
		}
		if !ok {
			select {
			case err := <-readErr:
				if err != nil {
					return fmt.Errorf("read requests: %w", err)
				}
			default:
			}
			return nil
		}

		n++
		if len(line) == 0 {
			continue
		}

		var msg ir.Message
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			if err := writeLine(formatter, LineError{Line: n, Error: fmt.Sprintf("invalid request: %v", err)}); err != nil {
				return err
			}
			continue
		}
		msg.Seq = 0

		res, err := eng.Submit(ctx, msg)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err := writeLine(formatter, LineError{Line: n, ID: msg.ID, Error: err.Error()}); err != nil {
				return err
			}
			continue
		}
		if err := writeLine(formatter, res); err != nil {
			return err
		}
	}
}

// writeLine writes one JSON line regardless of --format.
func writeLine(formatter *OutputFormatter, v any) error {
	return writeJSON(formatter.Writer, v)
}
