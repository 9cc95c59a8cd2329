package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/ao20/internal/ir"
	"github.com/roach88/ao20/internal/ledger"
)

// replayPageSize bounds how many journal rows are held in memory at once.
const replayPageSize = 500

// ReplayReport summarizes a replay.
type ReplayReport struct {
	// Messages is the number of journaled messages re-applied.
	Messages int

	// LastSeq is the seq of the last re-applied message.
	LastSeq int64

	// Diverged lists the seqs whose recomputed result hash differs from
	// the journaled one. Never nil.
	Diverged []int64

	// Ledger is the state after the last message.
	Ledger *ledger.Ledger
}

// OK reports whether every message replayed to its journaled result.
func (r *ReplayReport) OK() bool {
	return len(r.Diverged) == 0
}

// Replay rebuilds the ledger from the journal's genesis and every journaled
// message in seq order.
//
// Each re-derived result is compared with the journaled result by
// ir.ResultHash. Rejected messages are replayed too: they must be rejected
// again with the same error.
//
// Replay does not write to the journal.
func Replay(ctx context.Context, j Journal) (*ReplayReport, error) {
	g, err := j.ReadGenesis(ctx)
	if err != nil {
		return nil, fmt.Errorf("read genesis: %w", err)
	}
	l, err := ledger.New(g)
	if err != nil {
		return nil, fmt.Errorf("build ledger: %w", err)
	}

	report := &ReplayReport{
		Diverged: []int64{},
		Ledger:   l,
	}

	var after int64
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		msgs, err := j.ReadMessages(ctx, after, replayPageSize)
		if err != nil {
			return nil, fmt.Errorf("read messages after %d: %w", after, err)
		}
		if len(msgs) == 0 {
			break
		}
		results, err := j.ReadResults(ctx, after, replayPageSize)
		if err != nil {
			return nil, fmt.Errorf("read results after %d: %w", after, err)
		}
		if len(results) != len(msgs) {
			return nil, fmt.Errorf("journal inconsistent after seq %d: %d messages, %d results",
				after, len(msgs), len(results))
		}

		for i, msg := range msgs {
			want := results[i]
			if want.MessageID != msg.ID {
				return nil, fmt.Errorf("journal inconsistent at seq %d: message %s has result for %s",
					msg.Seq, msg.ID, want.MessageID)
			}

			got := l.Handle(msg)
			same, err := sameResult(got, want)
			if err != nil {
				return nil, fmt.Errorf("compare result at seq %d: %w", msg.Seq, err)
			}
			if !same {
				slog.Warn("replay diverged",
					"seq", msg.Seq,
					"id", msg.ID,
					"action", msg.Action,
					"journaled_error", want.Error,
					"replayed_error", got.Error,
				)
				report.Diverged = append(report.Diverged, msg.Seq)
			}

			report.Messages++
			report.LastSeq = msg.Seq
		}

		after = msgs[len(msgs)-1].Seq
		if len(msgs) < replayPageSize {
			break
		}
	}

	return report, nil
}

func sameResult(a, b ir.Result) (bool, error) {
	ha, err := ir.ResultHash(a)
	if err != nil {
		return false, err
	}
	hb, err := ir.ResultHash(b)
	if err != nil {
		return false, err
	}
	return ha == hb, nil
}
