package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/ao20/internal/ir"
	"github.com/roach88/ao20/internal/ledger"
)

// Engine is the single-writer message loop in front of a ledger.
//
// CRITICAL: All ledger mutations happen in the Run goroutine.
//
// Thread-safety model:
//   - Submit(), Inspect(), Stop(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
type Engine struct {
	ledger  *ledger.Ledger
	journal Journal
	clock   *Clock
	ids     IDGenerator
	queue   *requestQueue
	metrics Recorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithIDGenerator sets the generator for messages submitted without an ID.
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(r Recorder) Option {
	return func(e *Engine) {
		e.metrics = r
	}
}

// WithClock replaces the logical clock. Open uses it to resume after the
// last journaled seq.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// New creates an Engine over an already-built ledger. The clock starts at 0,
// so New is only correct for an empty journal; use Open otherwise.
func New(l *ledger.Ledger, j Journal, opts ...Option) *Engine {
	e := &Engine{
		ledger:  l,
		journal: j,
		clock:   NewClock(),
		ids:     UUIDv7Generator{},
		queue:   newRequestQueue(),
		metrics: nopRecorder{},
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Open restores an engine from a journal: the ledger is rebuilt by Replay
// and the clock resumes at the last journaled seq.
//
// Returns a REPLAY_DIVERGED RuntimeError if any journaled result cannot be
// reproduced.
func Open(ctx context.Context, j Journal, opts ...Option) (*Engine, error) {
	report, err := Replay(ctx, j)
	if err != nil {
		return nil, err
	}
	if !report.OK() {
		return nil, NewDivergedError(report.Diverged)
	}

	last, err := j.LastSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("read last seq: %w", err)
	}

	opts = append([]Option{WithClock(NewClockAt(last))}, opts...)
	e := New(report.Ledger, j, opts...)

	slog.Info("engine restored",
		"messages", report.Messages,
		"seq", last,
		"process", report.Ledger.Process(),
	)
	return e, nil
}

// Initialize validates g by building a ledger from it, then stores it as
// the journal's genesis.
func Initialize(ctx context.Context, j Journal, g ledger.Genesis) error {
	if _, err := ledger.New(g); err != nil {
		return err
	}
	if err := j.WriteGenesis(ctx, g); err != nil {
		return fmt.Errorf("write genesis: %w", err)
	}
	return nil
}

// Submit hands msg to the Run loop and waits for its result.
//
// A message that carries an ID already in the journal is not applied
// again; the journaled result is returned instead.
//
// If ctx is cancelled before the result is ready, Submit returns ctx.Err()
// but the message is still applied once dequeued.
func (e *Engine) Submit(ctx context.Context, msg ir.Message) (ir.Result, error) {
	return e.await(ctx, newMessageRequest(msg))
}

// Inspect runs fn against the ledger on the Run goroutine, between
// messages. fn must not retain the ledger or mutate it.
func (e *Engine) Inspect(ctx context.Context, fn func(l *ledger.Ledger)) error {
	_, err := e.await(ctx, newInspectRequest(fn))
	return err
}

func (e *Engine) await(ctx context.Context, req *request) (ir.Result, error) {
	if !e.queue.Enqueue(req) {
		return ir.Result{}, NewStoppedError()
	}
	e.metrics.SetQueueDepth(e.queue.Len())

	select {
	case <-ctx.Done():
		return ir.Result{}, ctx.Err()
	case resp := <-req.done:
		return resp.result, resp.err
	}
}

// Run starts the single-writer loop. It blocks until ctx is cancelled or
// Stop is called and the queue has drained.
//
// ERROR HANDLING: a failed journal append is logged and reported to the
// submitter. The message is discarded with its seq, and the loop continues
// with the next message.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting", "seq", e.clock.Current())

	for {
		req, ok := e.queue.TryDequeue()
		if ok {
			e.process(ctx, req)
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled")
			e.queue.Close()
			e.rejectPending()
			return ctx.Err()

		case <-e.queue.Wait():
			// A closed queue keeps Wait ready, so only exit once it is
			// also empty. Otherwise loop back to TryDequeue.
			if e.queue.Closed() && e.queue.Len() == 0 {
				slog.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the queue. Messages already queued are still processed;
// later submits fail with ENGINE_STOPPED.
func (e *Engine) Stop() {
	e.queue.Close()
}

// QueueLen returns the number of requests waiting for the Run loop.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// LastSeq returns the seq of the most recently applied message.
func (e *Engine) LastSeq() int64 {
	return e.clock.Current()
}

func (e *Engine) rejectPending() {
	for {
		req, ok := e.queue.TryDequeue()
		if !ok {
			return
		}
		req.respond(ir.Result{}, NewStoppedError())
	}
}

// process applies one request.
// CRITICAL: Called only from the Run goroutine.
func (e *Engine) process(ctx context.Context, req *request) {
	if req.inspect != nil {
		req.inspect(e.ledger)
		req.respond(ir.Result{}, nil)
		return
	}

	// A dequeued message always runs to completion.
	ctx = context.WithoutCancel(ctx)

	msg := req.msg
	if msg.ID == "" {
		msg.ID = e.ids.Generate()
	} else {
		prior, found, err := e.journal.LookupResult(ctx, msg.ID)
		if err != nil {
			e.metrics.RecordJournalError()
			slog.Error("journal lookup failed", "id", msg.ID, "error", err)
			req.respond(ir.Result{}, fmt.Errorf("lookup message %s: %w", msg.ID, err))
			return
		}
		if found {
			slog.Debug("duplicate message; returning journaled result", "id", msg.ID, "seq", prior.Seq)
			req.respond(prior, nil)
			return
		}
	}
	msg.Seq = e.clock.Next()
	msg.Tags = msg.Tags.Clone()

	// The message runs against a copy that replaces the live ledger only
	// once the journal holds it, so state never gets ahead of the journal.
	next := e.ledger.Clone()
	start := time.Now()
	res := next.Handle(msg)
	outcome := OutcomeOK
	if res.Failed() {
		outcome = OutcomeRejected
	}
	e.metrics.RecordMessage(msg.Action, outcome, time.Since(start))

	if err := e.journal.AppendResult(ctx, msg, res); err != nil {
		e.metrics.RecordJournalError()
		slog.Error("journal append failed",
			"seq", msg.Seq,
			"id", msg.ID,
			"action", msg.Action,
			"error", err,
		)
		e.clock.Release(msg.Seq)
		req.respond(ir.Result{}, NewJournalError(msg.ID, msg.Seq, err))
		return
	}
	e.ledger = next

	for _, n := range res.Notices {
		e.metrics.RecordNotice(n.Action())
	}
	e.metrics.SetQueueDepth(e.queue.Len())
	e.metrics.SetTotalSupply(e.ledger.TotalSupply().Float64(e.ledger.Denomination()))

	if res.Failed() {
		slog.Info("message rejected",
			"seq", msg.Seq,
			"id", msg.ID,
			"action", msg.Action,
			"from", msg.From,
			"error", res.Error,
		)
	} else {
		slog.Info("message handled",
			"seq", msg.Seq,
			"id", msg.ID,
			"action", msg.Action,
			"from", msg.From,
			"notices", len(res.Notices),
		)
	}

	req.respond(res, nil)
}
