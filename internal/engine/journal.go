package engine

import (
	"context"
	"time"

	"github.com/roach88/ao20/internal/ir"
	"github.com/roach88/ao20/internal/ledger"
)

// Journal is the durable log the engine writes to and replays from.
// Implemented by store.Store (SQLite) and postgres.Store.
type Journal interface {
	// WriteGenesis stores the initial configuration. It fails if a genesis
	// is already present.
	WriteGenesis(ctx context.Context, g ledger.Genesis) error
	ReadGenesis(ctx context.Context) (ledger.Genesis, error)

	// AppendResult persists msg, its result and its notices atomically.
	AppendResult(ctx context.Context, msg ir.Message, res ir.Result) error

	// LookupResult returns the journaled result for a message ID.
	LookupResult(ctx context.Context, messageID string) (ir.Result, bool, error)

	// Paged reads. after is an exclusive seq cursor.
	ReadMessages(ctx context.Context, after int64, limit int) ([]ir.Message, error)
	ReadResults(ctx context.Context, after int64, limit int) ([]ir.Result, error)
	ReadNotices(ctx context.Context, after int64, limit int) ([]ir.NoticeRecord, error)

	// LastSeq returns the highest journaled seq, or 0 for an empty journal.
	LastSeq(ctx context.Context) (int64, error)
}

// Recorder receives engine metrics. observability.Metrics implements it.
type Recorder interface {
	RecordMessage(action, outcome string, elapsed time.Duration)
	RecordNotice(kind string)
	RecordJournalError()
	SetQueueDepth(n int)
	SetTotalSupply(v float64)
}

// Outcome labels passed to Recorder.RecordMessage.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
)

type nopRecorder struct{}

func (nopRecorder) RecordMessage(string, string, time.Duration) {}
func (nopRecorder) RecordNotice(string)                          {}
func (nopRecorder) RecordJournalError()                          {}
func (nopRecorder) SetQueueDepth(int)                            {}
func (nopRecorder) SetTotalSupply(float64)                       {}
