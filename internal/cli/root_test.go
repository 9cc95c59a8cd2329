package cli

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "ao20", cmd.Use)
	assert.Contains(t, cmd.Long, "journal")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"init", "validate", "send", "run", "results", "notices", "replay", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	dbFlag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, "", dbFlag.DefValue)

	driverFlag := cmd.PersistentFlags().Lookup("driver")
	require.NotNil(t, driverFlag)
	assert.Equal(t, "", driverFlag.DefValue)
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		command string
		flag    string
		def     string
	}{
		{"send", "from", ""},
		{"send", "tag", "[]"},
		{"send", "data", ""},
		{"send", "id", ""},
		{"run", "metrics-addr", ""},
		{"results", "after", "0"},
		{"results", "limit", "100"},
		{"notices", "limit", "100"},
		{"notices", "target", ""},
		{"test", "update", "false"},
		{"test", "filter", ""},
	}

	for _, tt := range tests {
		t.Run(tt.command+"/"+tt.flag, func(t *testing.T) {
			cmd := NewRootCommand()
			sub, _, err := cmd.Find([]string{tt.command})
			require.NoError(t, err)

			f := sub.Flags().Lookup(tt.flag)
			require.NotNil(t, f)
			assert.Equal(t, tt.def, f.DefValue)
		})
	}
}

func TestResolveJournalOptions(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv(EnvDB, "")
		t.Setenv(EnvDriver, "")
		opts := &RootOptions{}
		opts.resolve()
		assert.Equal(t, DefaultDB, opts.DB)
		assert.Equal(t, DriverSQLite, opts.Driver)
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv(EnvDB, "postgres://localhost/ao20")
		t.Setenv(EnvDriver, DriverPostgres)
		opts := &RootOptions{}
		opts.resolve()
		assert.Equal(t, "postgres://localhost/ao20", opts.DB)
		assert.Equal(t, DriverPostgres, opts.Driver)
	})

	t.Run("flags win", func(t *testing.T) {
		t.Setenv(EnvDB, "env.db")
		t.Setenv(EnvDriver, DriverPostgres)
		opts := &RootOptions{DB: "flag.db", Driver: DriverSQLite}
		opts.resolve()
		assert.Equal(t, "flag.db", opts.DB)
		assert.Equal(t, DriverSQLite, opts.Driver)
	})
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("json"))
	assert.True(t, isValidFormat("text"))
	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	_, err := execute(t, cmd, "--format", "xml", "replay")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestDriverValidation(t *testing.T) {
	cmd := NewRootCommand()
	_, err := execute(t, cmd, "--driver", "mysql", "replay")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid driver")
}

func TestRootEndToEnd(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "coin.db")
	genesis := writeFile(t, dir, "genesis.yaml", testGenesisYAML)

	run := func(args ...string) (string, error) {
		cmd := NewRootCommand()
		buf := &bytes.Buffer{}
		cmd.SetOut(buf)
		cmd.SetErr(io.Discard)
		cmd.SetArgs(append([]string{"--db", db}, args...))
		err := cmd.Execute()
		return buf.String(), err
	}

	_, err := run("init", genesis)
	require.NoError(t, err)

	_, err = run("send", "Approve", "--from", "alice", "--tag", "Spender="+testProcess, "--tag", "Quantity=250")
	require.NoError(t, err)

	out, err := run("send", "Transfer", "--from", "alice", "--tag", "Recipient=bob", "--tag", "Quantity=250")
	require.NoError(t, err)
	assert.Contains(t, out, "Credit-Notice")

	out, err = run("send", "Balance", "--from", "bob")
	require.NoError(t, err)
	assert.Contains(t, out, "Balance=750")

	out, err = run("replay")
	require.NoError(t, err)
	assert.Contains(t, out, "Replayed 3 message(s)")
	assert.Contains(t, out, "✓ All results verified deterministic")
}
