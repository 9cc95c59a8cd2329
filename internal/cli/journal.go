package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/ao20/internal/engine"
	"github.com/roach88/ao20/internal/store"
	"github.com/roach88/ao20/internal/store/postgres"
)

// journal is an engine journal the CLI owns and must close.
type journal interface {
	engine.Journal
	Close() error
}

// openJournal opens the journal selected by --driver and --db.
func openJournal(ctx context.Context, opts *RootOptions) (journal, error) {
	opts.resolve()
	slog.Debug("opening journal", "driver", opts.Driver, "db", opts.DB)

	switch opts.Driver {
	case DriverSQLite:
		st, err := store.Open(opts.DB)
		if err != nil {
			return nil, err
		}
		return st, nil
	case DriverPostgres:
		st, err := postgres.Open(ctx, opts.DB)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown driver %q", opts.Driver)
	}
}

func closeJournal(j journal) {
	if err := j.Close(); err != nil {
		slog.Error("error closing journal", "error", err)
	}
}

// session is a restored engine with its Run loop started.
type session struct {
	Engine  *engine.Engine
	journal journal
	cancel  context.CancelFunc
	done    chan error
}

// startSession opens the journal, restores the engine by replay and starts
// its Run loop. Close stops the loop and closes the journal.
func startSession(ctx context.Context, opts *RootOptions, engOpts ...engine.Option) (*session, error) {
	j, err := openJournal(ctx, opts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
	}

	eng, err := engine.Open(ctx, j, engOpts...)
	if err != nil {
		closeJournal(j)
		if engine.IsDiverged(err) {
			return nil, WrapExitError(ExitFailure, "failed to restore engine", err)
		}
		return nil, WrapExitError(ExitCommandError, "failed to restore engine", err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &session{
		Engine:  eng,
		journal: j,
		cancel:  cancel,
		done:    make(chan error, 1),
	}
	go func() { s.done <- eng.Run(runCtx) }()
	return s, nil
}

// Close drains the queue, stops the Run loop and closes the journal.
func (s *session) Close() {
	s.Engine.Stop()
	<-s.done
	s.cancel()
	closeJournal(s.journal)
}
