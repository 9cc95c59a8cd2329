package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() Result {
	return Result{
		MessageID: "msg-1",
		Seq:       1,
		From:      "wallet",
		Action:    "Transfer",
		Notices: []Outbound{
			{Target: "wallet", Tags: Tags{"Action": "Debit-Notice", "Quantity": "5"}, Data: "debit"},
			{Target: "bob", Tags: Tags{"Action": "Credit-Notice", "Quantity": "5"}, Data: "credit"},
		},
	}
}

func TestResultHashDeterminism(t *testing.T) {
	h1, err := ResultHash(sampleResult())
	require.NoError(t, err)
	h2, err := ResultHash(sampleResult())
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
}

func TestResultHashSensitiveToNoticeOrder(t *testing.T) {
	r := sampleResult()
	swapped := sampleResult()
	swapped.Notices[0], swapped.Notices[1] = swapped.Notices[1], swapped.Notices[0]

	assert.NotEqual(t, MustResultHash(r), MustResultHash(swapped))
}

func TestResultHashSensitiveToError(t *testing.T) {
	ok := Result{MessageID: "m", Seq: 1, From: "a", Action: "Transfer", Notices: []Outbound{}}
	failed := ok
	failed.Error = "Recipient is required!"

	assert.NotEqual(t, MustResultHash(ok), MustResultHash(failed))
}

func TestNoticeIDDistinguishesIndex(t *testing.T) {
	n := Outbound{Target: "wallet", Tags: Tags{"Action": "Debit-Notice"}, Data: "x"}

	id0, err := NoticeID("msg-1", 0, n)
	require.NoError(t, err)
	id1, err := NoticeID("msg-1", 1, n)
	require.NoError(t, err)
	other, err := NoticeID("msg-2", 0, n)
	require.NoError(t, err)

	assert.NotEqual(t, id0, id1)
	assert.NotEqual(t, id0, other)
}

func TestDomainSeparation(t *testing.T) {
	data := []byte(`{"a":1}`)
	assert.NotEqual(t, hashWithDomain(DomainNotice, data), hashWithDomain(DomainResult, data))
}

func TestNoticeRecords(t *testing.T) {
	r := sampleResult()

	recs, err := r.NoticeRecords()
	require.NoError(t, err)
	require.Len(t, recs, 2)

	for i, rec := range recs {
		want, err := NoticeID(r.MessageID, i, r.Notices[i])
		require.NoError(t, err)
		assert.Equal(t, want, rec.ID)
		assert.Equal(t, i, rec.Index)
		assert.Equal(t, int64(1), rec.Seq)
		assert.Equal(t, "msg-1", rec.MessageID)
		assert.Equal(t, r.Notices[i].Target, rec.Target)
	}
	assert.NotEqual(t, recs[0].ID, recs[1].ID)

	empty, err := Result{MessageID: "m"}.NoticeRecords()
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}
