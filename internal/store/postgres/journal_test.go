package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ao20/internal/engine"
	"github.com/roach88/ao20/internal/ir"
	"github.com/roach88/ao20/internal/ledger"
	"github.com/roach88/ao20/internal/store"
	"github.com/roach88/ao20/internal/testutil"
)

func TestStore_Journal(t *testing.T) {
	s := setupTestStore(t)
	ctx := t.Context()

	t.Run("genesis", func(t *testing.T) {
		_, err := s.ReadGenesis(ctx)
		assert.ErrorIs(t, err, store.ErrNotFound)

		require.NoError(t, s.WriteGenesis(ctx, testutil.Genesis()))
		assert.ErrorIs(t, s.WriteGenesis(ctx, testutil.Genesis()), store.ErrGenesisExists)

		got, err := s.ReadGenesis(ctx)
		require.NoError(t, err)
		assert.Equal(t, testutil.Genesis(), got)
	})

	msgs, results := handled(t,
		transferMsg(testutil.Wallet, testutil.Wallet2, 5),
		ir.Message{From: testutil.Wallet, Action: ledger.ActionBalances},
		transferMsg(testutil.Wallet2, testutil.Wallet, 9999),
	)

	t.Run("append and read back", func(t *testing.T) {
		seq, err := s.LastSeq(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), seq)

		for i := range msgs {
			require.NoError(t, s.AppendResult(ctx, msgs[i], results[i]))
		}

		seq, err = s.LastSeq(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), seq)

		gotMsgs, err := s.ReadMessages(ctx, 0, 10)
		require.NoError(t, err)
		assert.Equal(t, msgs, gotMsgs)

		gotResults, err := s.ReadResults(ctx, 0, 10)
		require.NoError(t, err)
		require.Len(t, gotResults, 3)
		for i := range results {
			assert.Equal(t, ir.MustResultHash(results[i]), ir.MustResultHash(gotResults[i]),
				"result %d must hash identically after a round trip", i)
		}
		assert.Equal(t, results[2].Error, gotResults[2].Error)
		assert.Nil(t, gotResults[0].Reply)
		require.NotNil(t, gotResults[1].Reply)
	})

	t.Run("duplicate append is a no-op", func(t *testing.T) {
		require.NoError(t, s.AppendResult(ctx, msgs[0], results[0]))

		seq, err := s.LastSeq(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), seq)
	})

	t.Run("seq conflict", func(t *testing.T) {
		other := msgs[0]
		other.ID = "someone-else"
		res := results[0]
		res.MessageID = other.ID

		err := s.AppendResult(ctx, other, res)
		assert.ErrorIs(t, err, store.ErrSeqConflict)
	})

	t.Run("mismatched result", func(t *testing.T) {
		err := s.AppendResult(ctx, msgs[0], results[1])
		assert.ErrorContains(t, err, "does not belong")
	})

	t.Run("lookup", func(t *testing.T) {
		got, ok, err := s.LookupResult(ctx, msgs[0].ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, ir.MustResultHash(results[0]), ir.MustResultHash(got))

		_, ok, err = s.LookupResult(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("notices page by message", func(t *testing.T) {
		all, err := s.ReadNotices(ctx, 0, 100)
		require.NoError(t, err)
		require.Len(t, all, 2, "the transfer emits a debit and a credit notice")
		assert.Equal(t, []int{0, 1}, []int{all[0].Index, all[1].Index})

		// A limit of one still returns both notices of seq 1.
		page, err := s.ReadNotices(ctx, 0, 1)
		require.NoError(t, err)
		assert.Len(t, page, 2)

		rest, err := s.ReadNotices(ctx, 1, 100)
		require.NoError(t, err)
		assert.NotNil(t, rest)
		assert.Empty(t, rest)
	})

	t.Run("paging", func(t *testing.T) {
		first, err := s.ReadMessages(ctx, 0, 2)
		require.NoError(t, err)
		require.Len(t, first, 2)

		second, err := s.ReadMessages(ctx, first[1].Seq, 2)
		require.NoError(t, err)
		require.Len(t, second, 1)
		assert.Equal(t, msgs[2].ID, second[0].ID)
	})
}

func TestStore_EngineReplay(t *testing.T) {
	s := setupTestStore(t)
	ctx := t.Context()

	require.NoError(t, engine.Initialize(ctx, s, testutil.Genesis()))

	msgs, results := handled(t,
		approveMsg(testutil.Wallet, testutil.ProcessID, 7),
		transferMsg(testutil.Wallet, testutil.Wallet2, 7),
		approveMsg(testutil.Wallet2, testutil.ProcessID, 2),
		transferMsg(testutil.Wallet2, testutil.ProcessID, 2),
	)
	for i := range msgs {
		require.NoError(t, s.AppendResult(ctx, msgs[i], results[i]))
	}

	report, err := engine.Replay(ctx, s)
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, 4, report.Messages)
	assert.Equal(t, int64(4), report.LastSeq)
	assert.True(t, report.Ledger.AllowanceOf(testutil.Wallet, testutil.ProcessID).IsZero())
}
