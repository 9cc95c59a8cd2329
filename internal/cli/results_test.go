package cli

import (
	"encoding/json"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedJournal journals three messages: an approve (2 notices), a transfer
// (2 notices) and a rejected mint (none).
func seedJournal(t *testing.T, opts *RootOptions) {
	t.Helper()
	initJournal(t, opts)
	textOpts := *opts
	textOpts.Format = "text"

	_, err := send(t, &textOpts, "Approve", "--from", "alice", "--tag", "Spender="+testProcess, "--tag", "Quantity=10", "--id", "m-1")
	require.NoError(t, err)
	_, err = send(t, &textOpts, "Transfer", "--from", "alice", "--tag", "Recipient=bob", "--tag", "Quantity=10", "--id", "m-2")
	require.NoError(t, err)
	_, err = send(t, &textOpts, "Mint", "--from", "bob", "--tag", "Quantity=5", "--id", "m-3")
	require.Error(t, err)
}

func TestResultsText(t *testing.T) {
	opts := newJournalOpts(t, "text")
	seedJournal(t, opts)

	out, err := execute(t, NewResultsCommand(opts))
	require.NoError(t, err)
	assert.Contains(t, out, "#1 Approve from alice (id m-1)")
	assert.Contains(t, out, "#2 Transfer from alice (id m-2)")
	assert.Contains(t, out, "#3 Mint from bob (id m-3)\n  error: Sender must be Owner!")
	assert.NotContains(t, out, "next:")
}

func TestResultsPaging(t *testing.T) {
	opts := newJournalOpts(t, "json")
	seedJournal(t, opts)

	var seen []string
	after := int64(0)
	for range 5 {
		out, err := execute(t, NewResultsCommand(opts), "--after", strconv.FormatInt(after, 10), "--limit", "2")
		require.NoError(t, err)

		var resp struct {
			Data ResultsPage `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		for _, r := range resp.Data.Results {
			seen = append(seen, r.MessageID)
		}
		if !resp.Data.More {
			break
		}
		after = resp.Data.Next
	}
	assert.Equal(t, []string{"m-1", "m-2", "m-3"}, seen)
}

func TestResultsEmpty(t *testing.T) {
	opts := newJournalOpts(t, "text")
	initJournal(t, opts)

	out, err := execute(t, NewResultsCommand(opts))
	require.NoError(t, err)
	assert.Contains(t, out, "No results.")
}

func TestResultsInvalidPaging(t *testing.T) {
	opts := newJournalOpts(t, "text")

	_, err := execute(t, NewResultsCommand(opts), "--limit", "0")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, NewNoticesCommand(opts), "--after", "-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestNoticesText(t *testing.T) {
	opts := newJournalOpts(t, "text")
	seedJournal(t, opts)

	out, err := execute(t, NewNoticesCommand(opts))
	require.NoError(t, err)
	assert.Contains(t, out, "#1.0 Approve-Notice -> alice")
	assert.Contains(t, out, "#1.1 Approval-Notice -> "+testProcess)
	assert.Contains(t, out, "#2.0 Debit-Notice -> alice")
	assert.Contains(t, out, "#2.1 Credit-Notice -> bob")
	assert.NotContains(t, out, "#3.")
}

func TestNoticesTargetFilter(t *testing.T) {
	opts := newJournalOpts(t, "json")
	seedJournal(t, opts)

	out, err := execute(t, NewNoticesCommand(opts), "--target", "bob")
	require.NoError(t, err)

	var resp struct {
		Data NoticesPage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotEmpty(t, resp.Data.Notices)
	for _, n := range resp.Data.Notices {
		assert.Equal(t, "bob", n.Target)
	}
	assert.Equal(t, int64(2), resp.Data.Next, "cursor follows the unfiltered page")
}

func TestNoticesPageKeepsMessageTogether(t *testing.T) {
	opts := newJournalOpts(t, "json")
	seedJournal(t, opts)

	out, err := execute(t, NewNoticesCommand(opts), "--limit", "1")
	require.NoError(t, err)

	var resp struct {
		Data NoticesPage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Notices, 2, "both notices of seq 1")
	assert.Equal(t, int64(1), resp.Data.Next)
	assert.True(t, resp.Data.More)
}

func TestFilterNotices(t *testing.T) {
	assert.Empty(t, filterNotices(nil, "bob"))
	assert.NotNil(t, filterNotices(nil, "bob"))
}
