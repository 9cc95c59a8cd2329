package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ao20/internal/ir"
	"github.com/roach88/ao20/internal/ledger"
	"github.com/roach88/ao20/internal/testutil"
)

func mixedScript() []ir.Message {
	return []ir.Message{
		{From: testutil.Wallet, Action: ledger.ActionApprove, Tags: ir.Tags{ledger.TagSpender: testutil.Wallet2, ledger.TagQuantity: testutil.Units(30)}},
		{From: testutil.Wallet2, Action: ledger.ActionTransferFrom, Tags: ir.Tags{ledger.TagSender: testutil.Wallet, ledger.TagRecipient: testutil.ProcessID, ledger.TagQuantity: testutil.Units(10)}},
		{From: testutil.Wallet, Action: ledger.ActionBalances},
		transferMsg(testutil.Wallet2, testutil.Wallet, 1000),
		{From: testutil.Wallet, Action: ledger.ActionInfo},
	}
}

func TestReadMessages_OrderAndPaging(t *testing.T) {
	s := createTestStore(t)
	msgs, results := handled(t, mixedScript()...)
	appendAll(t, s, msgs, results)

	page1, err := s.ReadMessages(t.Context(), 0, 2)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.Equal(t, int64(1), page1[0].Seq)
	assert.Equal(t, int64(2), page1[1].Seq)
	assert.Equal(t, msgs[1], page1[1])

	page2, err := s.ReadMessages(t.Context(), page1[1].Seq, 10)
	require.NoError(t, err)
	require.Len(t, page2, 3)
	assert.Equal(t, int64(3), page2[0].Seq)
	assert.Equal(t, ir.Tags{}, page2[0].Tags)
}

func TestReadMessages_EmptyIsNotNil(t *testing.T) {
	s := createTestStore(t)

	msgs, err := s.ReadMessages(t.Context(), 0, 10)
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)

	results, err := s.ReadResults(t.Context(), 0, 10)
	require.NoError(t, err)
	assert.NotNil(t, results)

	notices, err := s.ReadNotices(t.Context(), 0, 10)
	require.NoError(t, err)
	assert.NotNil(t, notices)
}

// Replay compares results by hash, so a round trip through the journal
// must not change a single byte of the canonical form.
func TestReadResults_HashStableAcrossRoundTrip(t *testing.T) {
	s := createTestStore(t)
	msgs, results := handled(t, mixedScript()...)
	appendAll(t, s, msgs, results)

	got, err := s.ReadResults(t.Context(), 0, 100)
	require.NoError(t, err)
	require.Len(t, got, len(results))

	for i := range results {
		assert.Equal(t, ir.MustResultHash(results[i]), ir.MustResultHash(got[i]), "seq %d", results[i].Seq)
		assert.Equal(t, results[i].NoticeActions(), got[i].NoticeActions())
	}
	require.NotNil(t, got[2].Reply)
	assert.Equal(t, results[2].Reply.Data, got[2].Reply.Data)
}

func TestReadNotices_PagesWithoutSplittingMessages(t *testing.T) {
	s := createTestStore(t)
	msgs, results := handled(t, mixedScript()...)
	appendAll(t, s, msgs, results)

	// seq 1 has 2 notices (Approve, Approval), seq 2 has 3.
	page, err := s.ReadNotices(t.Context(), 0, 3)
	require.NoError(t, err)
	require.Len(t, page, 5, "the page extends to the end of seq 2")
	assert.Equal(t, []int{0, 1, 0, 1, 2}, []int{page[0].Index, page[1].Index, page[2].Index, page[3].Index, page[4].Index})
	assert.Equal(t, ledger.NoticeApprove, page[0].Action())
	assert.Equal(t, ledger.NoticeCredit, page[4].Action())
	assert.Equal(t, testutil.ProcessID, page[4].Target)

	page, err = s.ReadNotices(t.Context(), 0, 2)
	require.NoError(t, err)
	assert.Len(t, page, 2, "an exact fit stops at the message boundary")

	page, err = s.ReadNotices(t.Context(), 2, 10)
	require.NoError(t, err)
	assert.Empty(t, page, "later messages emit no notices")
}

func TestReadNotices_IDsAreContentAddressed(t *testing.T) {
	s := createTestStore(t)
	msgs, results := handled(t, mixedScript()...)
	appendAll(t, s, msgs, results)

	page, err := s.ReadNotices(t.Context(), 0, 100)
	require.NoError(t, err)

	want, err := results[0].NoticeRecords()
	require.NoError(t, err)
	assert.Equal(t, want[0].ID, page[0].ID)
	assert.Equal(t, want[1].ID, page[1].ID)
}

func TestLookupResult(t *testing.T) {
	s := createTestStore(t)
	msgs, results := handled(t, mixedScript()...)
	appendAll(t, s, msgs, results)

	got, found, err := s.LookupResult(t.Context(), msgs[1].ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, ir.MustResultHash(results[1]), ir.MustResultHash(got))

	_, found, err = s.LookupResult(t.Context(), "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLastSeq(t *testing.T) {
	s := createTestStore(t)

	last, err := s.LastSeq(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(0), last)

	msgs, results := handled(t, mixedScript()...)
	appendAll(t, s, msgs, results)

	last, err = s.LastSeq(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(5), last)
}
