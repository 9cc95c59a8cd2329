package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ao20/internal/store"
)

func TestReplayDeterministic(t *testing.T) {
	opts := newJournalOpts(t, "text")
	seedJournal(t, opts)

	out, err := execute(t, NewReplayCommand(opts))
	require.NoError(t, err)
	assert.Contains(t, out, "Replayed 3 message(s) through seq 3")
	assert.Contains(t, out, "Total Supply: 1500")
	assert.Contains(t, out, "✓ All results verified deterministic")
	assert.NotContains(t, out, "State Hash", "hash is verbose-only")
}

func TestReplayJSON(t *testing.T) {
	opts := newJournalOpts(t, "json")
	seedJournal(t, opts)

	out, err := execute(t, NewReplayCommand(opts))
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 3, resp.Data.Messages)
	assert.True(t, resp.Data.Deterministic)
	assert.True(t, resp.Data.SupplyOK)
	assert.Empty(t, resp.Data.Diverged)
	assert.Len(t, resp.Data.StateHash, 64)
}

func TestReplayEmptyJournal(t *testing.T) {
	opts := newJournalOpts(t, "text")
	initJournal(t, opts)

	out, err := execute(t, NewReplayCommand(opts))
	require.NoError(t, err)
	assert.Contains(t, out, "Replayed 0 message(s)")
}

func TestReplayDetectsTampering(t *testing.T) {
	opts := newJournalOpts(t, "json")
	seedJournal(t, opts)

	st, err := store.Open(opts.DB)
	require.NoError(t, err)
	_, err = st.DB().Exec(`UPDATE messages SET tags = '{"Quantity":"999","Recipient":"bob"}' WHERE seq = 2`)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execute(t, NewReplayCommand(opts))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
		Error  *CLIError    `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeDiverged, resp.Error.Code)
	assert.Equal(t, []int64{2}, resp.Data.Diverged)
	assert.False(t, resp.Data.Deterministic)

	// A diverged journal cannot be served.
	_, err = send(t, opts, "Info", "--from", "alice")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestReplayWithoutGenesis(t *testing.T) {
	_, err := execute(t, NewReplayCommand(newJournalOpts(t, "text")))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
