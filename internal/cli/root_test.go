package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "memcheck", cmd.Use)
	assert.Contains(t, cmd.Long, "exits 0 when every case passes")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"run", "list", "mock"}

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

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "", configFlag.DefValue)
}

func TestRunFlagsOnRootAndRun(t *testing.T) {
	root := NewRootCommand()
	runCmd, _, err := root.Find([]string{"run"})
	require.NoError(t, err)

	for _, c := range []struct {
		name string
		def  string
	}{
		{"base-url", "https://fractal-frontend-1.preview.emergentagent.com"},
		{"symbol", "BTC"},
		{"focus", "30d"},
		{"timeout", "30s"},
		{"report", ""},
	} {
		for _, cmd := range []string{"root", "run"} {
			flags := root.Flags()
			if cmd == "run" {
				flags = runCmd.Flags()
			}
			f := flags.Lookup(c.name)
			require.NotNil(t, f, "%s should have --%s", cmd, c.name)
			assert.Equal(t, c.def, f.DefValue, "%s --%s", cmd, c.name)
		}
	}
}

func TestMockCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	mockCmd, _, err := cmd.Find([]string{"mock"})
	require.NoError(t, err)

	addr := mockCmd.Flags().Lookup("addr")
	require.NotNil(t, addr)
	assert.Equal(t, ":8080", addr.DefValue)
	assert.NotNil(t, mockCmd.Flags().Lookup("seed-days"))
}

func TestInvalidFormat(t *testing.T) {
	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"list", "--format", "yaml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "yaml"`)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestUnexpectedArgument(t *testing.T) {
	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"run", "extra"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(NewExitError(ExitFailure, "2 of 11 cases failed")))
	assert.Equal(t, ExitCommandError, GetExitCode(errors.New("unknown flag: --nope")))

	wrapped := WrapExitError(ExitCommandError, "invalid configuration", errors.New("symbol is required"))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
	assert.Equal(t, "invalid configuration: symbol is required", wrapped.Error())
	assert.EqualError(t, errors.Unwrap(wrapped), "symbol is required")
}
