package mcp

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/clawmgr/internal/backup"
	"github.com/thoreinstein/clawmgr/internal/cli"
	"github.com/thoreinstein/clawmgr/internal/config"
	"github.com/thoreinstein/clawmgr/internal/logging"
)

// newTestApp wires an App whose files all live under a temp directory.
func newTestApp(t *testing.T) *cli.App {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.RegistryPath = filepath.Join(dir, "clawmgr", "mcp-servers.json")
	cfg.ExternalStorePath = filepath.Join(dir, "mcporter", "mcporter.json")
	cfg.InstallRoot = filepath.Join(dir, "servers")
	cfg.PlatformConfigPath = filepath.Join(dir, "openclaw.json")

	return cli.New(cfg, logging.ForTest(t),
		cli.WithBackups(backup.NewManager(backup.WithBackupDir(filepath.Join(dir, "backups")))),
	)
}

// run invokes fn as cmd would with a and returns what it printed.
// stdin feeds any prompt.
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

// resetFlag restores *p after the test.
func resetFlag[T any](t *testing.T, p *T, v T) {
	t.Helper()
	orig := *p
	*p = v
	t.Cleanup(func() { *p = orig })
}
