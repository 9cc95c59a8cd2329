package cli

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

const testProcess = "Proc4444"

const testGenesisYAML = `process: Proc4444
name: Test Coin
ticker: TST
denomination: 2
owner: alice
balances:
  alice: "1000"
  bob: "500"
`

// writeFile writes content under dir and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// newJournalOpts returns options pointing at a fresh SQLite journal.
func newJournalOpts(t *testing.T, format string) *RootOptions {
	t.Helper()
	return &RootOptions{
		Format: format,
		DB:     filepath.Join(t.TempDir(), "ao20.db"),
		Driver: DriverSQLite,
	}
}

// execute runs cmd with args and returns what it wrote to stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// initJournal writes the test genesis into the journal opts points at.
func initJournal(t *testing.T, opts *RootOptions) {
	t.Helper()
	path := writeFile(t, t.TempDir(), "genesis.yaml", testGenesisYAML)
	textOpts := *opts
	textOpts.Format = "text"
	_, err := execute(t, NewInitCommand(&textOpts), path)
	require.NoError(t, err)
}

// send submits one message through the send command.
func send(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	return execute(t, NewSendCommand(opts), args...)
}

// approveProcess lets the ledger process move qty of from's balance, which a
// plain Transfer requires. It journals one message.
func approveProcess(t *testing.T, opts *RootOptions, from, qty string) {
	t.Helper()
	textOpts := *opts
	textOpts.Format = "text"
	_, err := send(t, &textOpts, "Approve", "--from", from, "--tag", "Spender="+testProcess, "--tag", "Quantity="+qty)
	require.NoError(t, err)
}
