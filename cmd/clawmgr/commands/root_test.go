package commands

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/clawmgr/internal/errors"
	"github.com/thoreinstein/clawmgr/internal/logging"
)

func TestLogLevel(t *testing.T) {
	tests := []struct {
		name    string
		quiet   bool
		verbose int
		env     string
		want    slog.Level
	}{
		{name: "default", want: slog.LevelWarn},
		{name: "-v", verbose: 1, want: slog.LevelInfo},
		{name: "-vv", verbose: 2, want: slog.LevelDebug},
		{name: "-vvvv clamps to trace", verbose: 4, want: logging.LevelTrace},
		{name: "quiet", quiet: true, want: slog.LevelError},
		{name: "env 1", env: "1", want: slog.LevelDebug},
		{name: "env true", env: "true", want: slog.LevelDebug},
		{name: "env 2", env: "2", want: logging.LevelTrace},
		{name: "env garbage", env: "yes please", want: slog.LevelWarn},
		{name: "flag beats env", verbose: 1, env: "2", want: slog.LevelInfo},
		{name: "quiet beats env", quiet: true, env: "2", want: slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CLAWMGR_DEBUG", tt.env)
			got, err := logLevel(tt.quiet, tt.verbose)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLogLevel_QuietWithVerbose(t *testing.T) {
	_, err := logLevel(true, 1)
	require.Error(t, err)
	assert.Equal(t, errors.ExitUser, errors.ExitCode(err))
	assert.Contains(t, errors.Suggestion(err), "--quiet")
}

func TestSetupLogging_LogFileMasksSecrets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clawmgr.log")
	origFile, origVerbosity, origDefault := logFile, verbosity, slog.Default()
	t.Cleanup(func() {
		logFile, verbosity = origFile, origVerbosity
		slog.SetDefault(origDefault)
	})
	logFile, verbosity = path, 2

	c := &cobra.Command{}
	c.SetErr(io.Discard)
	require.NoError(t, setupLogging(c))

	logging.FromContext(c.Context()).Debug("spawning", "server", "github", "GITHUB_TOKEN", "ghp_abcdefgh1234")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"server":"github"`)
	assert.Contains(t, string(data), `"GITHUB_TOKEN":"****1234"`)
	assert.NotContains(t, string(data), "abcdefgh")

	info, err := os.Stat(path)
	require.NoError(t, err)
	if runtimeHasUnixPerms() {
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}
}

func TestSkipsApp(t *testing.T) {
	tests := []struct {
		cmd  *cobra.Command
		want bool
	}{
		{versionCmd, true},
		{configGetCmd, true},
		{configInitCmd, true},
		{doctorCmd, false},
		{platformGetCmd, false},
	}
	for _, tt := range tests {
		t.Run(tt.cmd.Name(), func(t *testing.T) {
			assert.Equal(t, tt.want, skipsApp(tt.cmd))
		})
	}
}

func runtimeHasUnixPerms() bool { return os.PathSeparator == '/' }
