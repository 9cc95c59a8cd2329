package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ao20/internal/ir"
	"github.com/roach88/ao20/internal/ledger"
	"github.com/roach88/ao20/internal/testutil"
)

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

// startEngine builds an engine over the fixture genesis and runs it until
// the test ends.
func startEngine(t *testing.T, j *memJournal, opts ...Option) *Engine {
	t.Helper()
	require.NoError(t, Initialize(context.Background(), j, testutil.Genesis()))

	l, err := ledger.New(testutil.Genesis())
	require.NoError(t, err)

	opts = append([]Option{WithIDGenerator(testutil.NewSequentialIDGenerator("m"))}, opts...)
	e := New(l, j, opts...)
	run(t, e)
	return e
}

// run starts e.Run and stops it at cleanup.
func run(t *testing.T, e *Engine) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("engine did not stop")
		}
	})
}

func transfer(from, to string, units int64) ir.Message {
	return ir.Message{
		From:   from,
		Action: ledger.ActionTransfer,
		Tags: ir.Tags{
			ledger.TagRecipient: to,
			ledger.TagQuantity:  testutil.Units(units),
		},
	}
}

// Journaled IDs of the approvals submitted by grant.
const (
	grantWallet  = "grant-wallet"
	grantWallet2 = "grant-wallet2"
	granted      = 2
)

// grant approves the process for both fixture wallets' whole balances, so
// plain transfers between them succeed. It uses seqs 1 and 2.
func grant(t *testing.T, e *Engine) {
	t.Helper()
	for _, g := range []struct {
		id, from string
		units    int64
	}{
		{grantWallet, testutil.Wallet, 300},
		{grantWallet2, testutil.Wallet2, 100},
	} {
		res, err := e.Submit(context.Background(), ir.Message{
			ID:     g.id,
			From:   g.from,
			Action: ledger.ActionApprove,
			Tags: ir.Tags{
				ledger.TagSpender:  testutil.ProcessID,
				ledger.TagQuantity: testutil.Units(g.units),
			},
		})
		require.NoError(t, err)
		require.False(t, res.Failed(), res.Error)
	}
}

func TestEngine_SubmitAssignsSeqAndID(t *testing.T) {
	j := newMemJournal()
	e := startEngine(t, j)
	grant(t, e)
	ctx := context.Background()

	r1, err := e.Submit(ctx, transfer(testutil.Wallet, testutil.Wallet2, 10))
	require.NoError(t, err)
	r2, err := e.Submit(ctx, transfer(testutil.Wallet, testutil.Wallet2, 10))
	require.NoError(t, err)

	assert.Equal(t, "m-0001", r1.MessageID)
	assert.Equal(t, int64(granted+1), r1.Seq)
	assert.Equal(t, "m-0002", r2.MessageID)
	assert.Equal(t, int64(granted+2), r2.Seq)
	assert.Equal(t, int64(granted+2), e.LastSeq())
	assert.Equal(t, []string{ledger.NoticeDebit, ledger.NoticeCredit}, r1.NoticeActions())
}

func TestEngine_JournalsRejectedMessages(t *testing.T) {
	j := newMemJournal()
	e := startEngine(t, j)

	res, err := e.Submit(context.Background(), transfer(testutil.Wallet2, testutil.Wallet, 1000))
	require.NoError(t, err, "a ledger rejection is not an engine error")

	assert.Equal(t, ledger.MsgExceedsAllowance, res.Error)
	assert.Empty(t, res.Notices)
	require.Len(t, j.results, 1)
	assert.Equal(t, ledger.MsgExceedsAllowance, j.results[0].Error)
}

func TestEngine_KeepsCallerID(t *testing.T) {
	j := newMemJournal()
	e := startEngine(t, j)
	grant(t, e)

	msg := transfer(testutil.Wallet, testutil.Wallet2, 1)
	msg.ID = "client-42"
	res, err := e.Submit(context.Background(), msg)
	require.NoError(t, err)

	assert.Equal(t, "client-42", res.MessageID)
}

func TestEngine_DuplicateIDReturnsJournaledResult(t *testing.T) {
	j := newMemJournal()
	e := startEngine(t, j)
	grant(t, e)
	ctx := context.Background()

	msg := transfer(testutil.Wallet, testutil.Wallet2, 10)
	msg.ID = "retry-me"

	first, err := e.Submit(ctx, msg)
	require.NoError(t, err)
	second, err := e.Submit(ctx, msg)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{grantWallet, grantWallet2, "retry-me"}, j.appendLog, "duplicate must not be journaled twice")

	var balance string
	require.NoError(t, e.Inspect(ctx, func(l *ledger.Ledger) {
		balance = l.BalanceOf(testutil.Wallet2).String()
	}))
	assert.Equal(t, testutil.Units(110), balance, "duplicate must not be applied twice")
}

func TestEngine_SubmitDoesNotAliasCallerTags(t *testing.T) {
	j := newMemJournal()
	e := startEngine(t, j)
	grant(t, e)

	msg := transfer(testutil.Wallet, testutil.Wallet2, 1)
	_, err := e.Submit(context.Background(), msg)
	require.NoError(t, err)

	msg.Tags[ledger.TagQuantity] = "999"
	assert.Equal(t, testutil.Units(1), j.messages[granted].Tags[ledger.TagQuantity])
}

func TestEngine_ConcurrentSubmitsAreSerialized(t *testing.T) {
	j := newMemJournal()
	e := startEngine(t, j)
	grant(t, e)
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	seqs := make(chan int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.Submit(ctx, transfer(testutil.Wallet, testutil.Wallet2, 1))
			assert.NoError(t, err)
			assert.False(t, res.Failed())
			seqs <- res.Seq
		}()
	}
	wg.Wait()
	close(seqs)

	seen := make(map[int64]bool)
	for s := range seqs {
		seen[s] = true
	}
	for s := int64(granted + 1); s <= granted+n; s++ {
		assert.True(t, seen[s], "missing seq %d", s)
	}

	require.NoError(t, e.Inspect(ctx, func(l *ledger.Ledger) {
		assert.NoError(t, l.CheckSupply())
		assert.Equal(t, testutil.Units(250), l.BalanceOf(testutil.Wallet).String())
		assert.Equal(t, testutil.Units(150), l.BalanceOf(testutil.Wallet2).String())
	}))
}

func TestEngine_StopDrainsQueuedMessages(t *testing.T) {
	j := newMemJournal()
	require.NoError(t, Initialize(context.Background(), j, testutil.Genesis()))
	l, err := ledger.New(testutil.Genesis())
	require.NoError(t, err)
	e := New(l, j, WithIDGenerator(NewFixedGenerator("queued")))

	got := make(chan ir.Result, 1)
	go func() {
		res, err := e.Submit(context.Background(), transfer(testutil.Wallet, testutil.Wallet2, 1))
		assert.NoError(t, err)
		got <- res
	}()
	require.Eventually(t, func() bool { return e.QueueLen() == 1 }, time.Second, time.Millisecond)

	e.Stop()
	require.NoError(t, e.Run(context.Background()))

	res := <-got
	assert.Equal(t, "queued", res.MessageID)
	assert.Equal(t, int64(1), res.Seq)

	_, err = e.Submit(context.Background(), transfer(testutil.Wallet, testutil.Wallet2, 1))
	assert.True(t, IsStopped(err))
}

func TestEngine_RunReturnsOnContextCancel(t *testing.T) {
	j := newMemJournal()
	l, err := ledger.New(testutil.Genesis())
	require.NoError(t, err)
	e := New(l, j)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = e.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = e.Submit(context.Background(), transfer(testutil.Wallet, testutil.Wallet2, 1))
	assert.True(t, IsStopped(err))
}

func TestEngine_SubmitHonorsCallerContext(t *testing.T) {
	j := newMemJournal()
	l, err := ledger.New(testutil.Genesis())
	require.NoError(t, err)
	e := New(l, j) // never run

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = e.Submit(ctx, transfer(testutil.Wallet, testutil.Wallet2, 1))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEngine_JournalFailureIsReportedAndLoopContinues(t *testing.T) {
	j := newMemJournal()
	rec := newCountingRecorder()
	e := startEngine(t, j, WithMetrics(rec))
	grant(t, e)
	ctx := context.Background()

	j.failNext = errors.New("disk full")
	_, err := e.Submit(ctx, transfer(testutil.Wallet, testutil.Wallet2, 1))
	require.Error(t, err)
	assert.True(t, IsJournalError(err))
	assert.Contains(t, err.Error(), "disk full")

	res, err := e.Submit(ctx, transfer(testutil.Wallet, testutil.Wallet2, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(granted+1), res.Seq, "the failed message's seq is reused")
	assert.Equal(t, 1, rec.journalErrors)
}

func TestEngine_JournalFailureLeavesStateAtJournal(t *testing.T) {
	j := newMemJournal()
	e := startEngine(t, j)
	grant(t, e)
	ctx := context.Background()

	j.failNext = errors.New("connection reset")
	_, err := e.Submit(ctx, transfer(testutil.Wallet, testutil.Wallet2, 1))
	require.True(t, IsJournalError(err))

	res, err := e.Submit(ctx, ir.Message{From: testutil.Wallet, Action: ledger.ActionBalance})
	require.NoError(t, err)
	require.NotNil(t, res.Reply)
	assert.Equal(t, testutil.Units(300), res.Reply.Data, "the unjournaled transfer must not be visible")

	var allowance string
	require.NoError(t, e.Inspect(ctx, func(l *ledger.Ledger) {
		allowance = l.AllowanceOf(testutil.Wallet, testutil.ProcessID).String()
	}))
	assert.Equal(t, testutil.Units(300), allowance)

	e.Stop()
	reopened, err := Open(ctx, j)
	require.NoError(t, err, "journal must replay after a failed append")
	assert.Equal(t, int64(granted+1), reopened.LastSeq())
}

func TestEngine_RecordsMetrics(t *testing.T) {
	j := newMemJournal()
	rec := newCountingRecorder()
	e := startEngine(t, j, WithMetrics(rec))
	grant(t, e)
	ctx := context.Background()

	_, err := e.Submit(ctx, transfer(testutil.Wallet, testutil.Wallet2, 1))
	require.NoError(t, err)
	_, err = e.Submit(ctx, transfer(testutil.Wallet2, testutil.Wallet, 1000))
	require.NoError(t, err)
	_, err = e.Submit(ctx, ir.Message{From: testutil.Wallet, Action: ledger.ActionInfo})
	require.NoError(t, err)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 1, rec.messages["Transfer/ok"])
	assert.Equal(t, 1, rec.messages["Transfer/rejected"])
	assert.Equal(t, 1, rec.messages["Info/ok"])
	assert.Equal(t, 1, rec.notices[ledger.NoticeDebit])
	assert.Equal(t, 1, rec.notices[ledger.NoticeCredit])
	assert.InDelta(t, 500.0, rec.supply, 1e-9)
}

func TestInitialize(t *testing.T) {
	ctx := context.Background()

	bad := testutil.Genesis()
	bad.Process = ""
	j := newMemJournal()
	assert.Error(t, Initialize(ctx, j, bad))
	assert.Nil(t, j.genesis, "invalid genesis must not be written")

	require.NoError(t, Initialize(ctx, j, testutil.Genesis()))
	assert.Error(t, Initialize(ctx, j, testutil.Genesis()), "second genesis must fail")
}

func TestOpen_ResumesStateAndClock(t *testing.T) {
	j := newMemJournal()
	ctx := context.Background()

	first := startEngine(t, j)
	grant(t, first)
	for i := 0; i < 3; i++ {
		_, err := first.Submit(ctx, transfer(testutil.Wallet, testutil.Wallet2, 10))
		require.NoError(t, err)
	}
	first.Stop()

	reopened, err := Open(ctx, j, WithIDGenerator(NewFixedGenerator("after-restart")))
	require.NoError(t, err)
	run(t, reopened)

	assert.Equal(t, int64(granted+3), reopened.LastSeq())

	res, err := reopened.Submit(ctx, transfer(testutil.Wallet, testutil.Wallet2, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(granted+4), res.Seq)
	assert.Equal(t, "after-restart", res.MessageID)

	require.NoError(t, reopened.Inspect(ctx, func(l *ledger.Ledger) {
		assert.Equal(t, testutil.Units(260), l.BalanceOf(testutil.Wallet).String())
		assert.Equal(t, testutil.Units(140), l.BalanceOf(testutil.Wallet2).String())
	}))
}

func TestOpen_RefusesDivergedJournal(t *testing.T) {
	j := newMemJournal()
	ctx := context.Background()

	e := startEngine(t, j)
	grant(t, e)
	_, err := e.Submit(ctx, transfer(testutil.Wallet, testutil.Wallet2, 10))
	require.NoError(t, err)

	j.tamper(granted, func(r *ir.Result) { r.Notices = r.Notices[:1] })

	_, err = Open(ctx, j)
	require.Error(t, err)
	assert.True(t, IsDiverged(err))
}

func TestRuntimeError_Format(t *testing.T) {
	err := NewJournalError("m-1", 7, fmt.Errorf("boom"))

	assert.Equal(t, "JOURNAL_WRITE: append result to journal (message=m-1, seq=7): boom", err.Error())
	assert.EqualError(t, errors.Unwrap(err), "boom")
	assert.Equal(t, "ENGINE_STOPPED: engine is stopped", NewStoppedError().Error())

	wrapped := fmt.Errorf("outer: %w", NewDivergedError([]int64{3, 9}))
	assert.True(t, IsDiverged(wrapped))
	assert.False(t, IsStopped(wrapped))
}
