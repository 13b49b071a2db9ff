package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/clawmgr/cmd/clawmgr/commands/flags"
	"github.com/thoreinstein/clawmgr/internal/backup"
	"github.com/thoreinstein/clawmgr/internal/cli"
	"github.com/thoreinstein/clawmgr/internal/config"
	"github.com/thoreinstein/clawmgr/internal/errors"
	"github.com/thoreinstein/clawmgr/internal/logging"
)

func newTestApp(t *testing.T) *cli.App {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.RegistryPath = filepath.Join(dir, "clawmgr", "mcp-servers.json")
	cfg.ExternalStorePath = filepath.Join(dir, "mcporter.json")
	cfg.PlatformConfigPath = filepath.Join(dir, "openclaw.json")

	return cli.New(cfg, logging.ForTest(t),
		cli.WithBackups(backup.NewManager(backup.WithBackupDir(filepath.Join(dir, "backups")))),
	)
}

func run(t *testing.T, a *cli.App, fn func(*cobra.Command, []string) error, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetContext(cli.NewContext(context.Background(), a))
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(stdin))
	err := fn(cmd, args)
	return out.String(), err
}

func TestResolveTargets(t *testing.T) {
	t.Cleanup(func() { targetFlag = "" })

	targetFlag = ""
	got, err := resolveTargets()
	require.NoError(t, err)
	assert.Equal(t, allTargets, got)

	targetFlag = backup.TargetPlatformConfig
	got, err = resolveTargets()
	require.NoError(t, err)
	assert.Equal(t, []string{backup.TargetPlatformConfig}, got)

	targetFlag = "claude"
	_, err = resolveTargets()
	require.Error(t, err)
	assert.Equal(t, errors.ExitUser, errors.ExitCode(err))
}

func TestCreateListRestore(t *testing.T) {
	a := newTestApp(t)
	store := a.Syncer.Path()
	require.NoError(t, os.WriteFile(store, []byte(`{"mcpServers":{}}`), 0o600))

	out, err := run(t, a, runCreate, "")
	require.NoError(t, err)
	assert.Contains(t, out, "external-store: created")
	assert.Contains(t, out, "platform-config: "+a.Platform.Path()+" does not exist")

	listJSON = true
	t.Cleanup(func() { listJSON = false })
	out, err = run(t, a, runList, "")
	require.NoError(t, err)

	var listed []listOutput
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed, 2)
	assert.Equal(t, backup.TargetExternalStore, listed[0].Target)
	require.Len(t, listed[0].Backups, 1)
	assert.Empty(t, listed[1].Backups)

	require.NoError(t, os.WriteFile(store, []byte(`{"mcpServers":{"x":{}}}`), 0o600))

	t.Run("declined", func(t *testing.T) {
		out, err := run(t, a, runRestore, "n\n")
		require.NoError(t, err)
		assert.Contains(t, out, "Cancelled")
	})

	t.Run("latest", func(t *testing.T) {
		flags.SetAssumeYes(true)
		t.Cleanup(func() { flags.SetAssumeYes(false) })

		out, err := run(t, a, runRestore, "")
		require.NoError(t, err)
		assert.Contains(t, out, "Restored external-store")

		data, err := os.ReadFile(store)
		require.NoError(t, err)
		assert.JSONEq(t, `{"mcpServers":{}}`, string(data))
	})
}

func TestRestore_NoBackups(t *testing.T) {
	a := newTestApp(t)
	_, err := run(t, a, runRestore, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, backup.ErrNoBackupsFound))
	assert.Equal(t, errors.ExitUser, errors.ExitCode(err))
}

func TestPrune(t *testing.T) {
	a := newTestApp(t)
	require.NoError(t, os.WriteFile(a.Syncer.Path(), []byte(`{}`), 0o600))
	for range 3 {
		_, err := a.Backups.Backup(backup.TargetExternalStore, []string{a.Syncer.Path()})
		require.NoError(t, err)
	}

	pruneKeep = 1
	t.Cleanup(func() { pruneKeep = backup.DefaultRetentionCount })

	out, err := run(t, a, runPrune, "")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 2 backup(s)")

	manifests, err := a.Backups.List(backup.TargetExternalStore)
	require.NoError(t, err)
	assert.Len(t, manifests, 1)

	pruneKeep = -1
	_, err = run(t, a, runPrune, "")
	assert.Error(t, err)
}
