package companion

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/clawmgr/internal/errors"
	"github.com/thoreinstein/clawmgr/internal/logging"
	"github.com/thoreinstein/clawmgr/internal/shell"
	"github.com/thoreinstein/clawmgr/internal/shell/mocks"
)

// binDir returns a directory holding empty executables with the given names.
func binDir(t *testing.T, names ...string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("relies on unix executable bits")
	}
	dir := t.TempDir()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("#!/bin/sh\n"), 0o755))
	}
	return dir
}

func TestStatus_NotInstalled(t *testing.T) {
	runner := mocks.NewMockRunner(t)
	m := New(runner, binDir(t, "npm"), WithLogger(logging.ForTest(t)))

	st, err := m.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Status{Tool: "mcporter"}, st)
}

func TestStatus_Installed(t *testing.T) {
	dir := binDir(t, "mcporter")
	runner := mocks.NewMockRunner(t)
	runner.EXPECT().
		Run(mock.Anything, shell.Cmd{Name: filepath.Join(dir, "mcporter"), Args: []string{"--version"}}).
		Return(&shell.Result{Stdout: "0.7.1\nextra\n"}, nil)

	st, err := New(runner, dir).Status(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Installed)
	assert.Equal(t, filepath.Join(dir, "mcporter"), st.Path)
	assert.Equal(t, "0.7.1", st.Version)
}

func TestStatus_VersionFailureStillInstalled(t *testing.T) {
	dir := binDir(t, "custom")
	runner := mocks.NewMockRunner(t)
	runner.EXPECT().Run(mock.Anything, mock.Anything).
		Return(&shell.Result{ExitCode: 2, Stderr: "unknown flag"}, nil)

	st, err := New(runner, dir, WithTool("custom")).Status(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Installed)
	assert.Empty(t, st.Version)
}

func TestInstallUninstall(t *testing.T) {
	tests := []struct {
		name string
		verb string
		call func(*Manager, context.Context) error
	}{
		{"install", "install", (*Manager).Install},
		{"uninstall", "uninstall", (*Manager).Uninstall},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := mocks.NewMockRunner(t)
			runner.EXPECT().
				Run(mock.Anything, shell.Cmd{Name: "npm", Args: []string{tt.verb, "-g", "@scope/tool"}}).
				Return(&shell.Result{}, nil)

			m := New(runner, binDir(t, "npm"), WithPackage("@scope/tool"))
			require.NoError(t, tt.call(m, context.Background()))
		})
	}
}

func TestInstall_FailureCarriesStderr(t *testing.T) {
	runner := mocks.NewMockRunner(t)
	runner.EXPECT().Run(mock.Anything, mock.Anything).
		Return(&shell.Result{ExitCode: 1, Stderr: "EACCES: permission denied\n"}, nil)

	err := New(runner, binDir(t, "npm")).Install(context.Background())
	require.ErrorIs(t, err, ErrInstallFailed)
	assert.Contains(t, err.Error(), "EACCES: permission denied")
}

func TestUninstall_RunnerError(t *testing.T) {
	boom := errors.New("spawn failed")
	runner := mocks.NewMockRunner(t)
	runner.EXPECT().Run(mock.Anything, mock.Anything).Return(nil, boom)

	err := New(runner, binDir(t, "pnpm"), WithPackageManager("pnpm")).Uninstall(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUninstallFailed))
	assert.ErrorIs(t, err, boom)
}

func TestInstall_PackageManagerMissing(t *testing.T) {
	runner := mocks.NewMockRunner(t)
	err := New(runner, binDir(t)).Install(context.Background())
	require.ErrorIs(t, err, ErrInstallFailed)
	assert.Contains(t, errors.FlattenHints(err), "package_manager")
}
