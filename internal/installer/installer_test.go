package installer

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/clawmgr/internal/errors"
	"github.com/thoreinstein/clawmgr/internal/logging"
	"github.com/thoreinstein/clawmgr/internal/reconcile"
	"github.com/thoreinstein/clawmgr/internal/registry"
	"github.com/thoreinstein/clawmgr/internal/shell"
	"github.com/thoreinstein/clawmgr/internal/shell/mocks"
)

const source = "https://github.com/excalidraw/excalidraw-mcp.git"

func TestResolveName(t *testing.T) {
	tests := []struct {
		source  string
		want    string
		wantErr bool
	}{
		{"https://github.com/excalidraw/excalidraw-mcp", "excalidraw-mcp", false},
		{"https://github.com/excalidraw/excalidraw-mcp/", "excalidraw-mcp", false},
		{"https://github.com/excalidraw/excalidraw-mcp.git", "excalidraw-mcp", false},
		{"https://github.com/excalidraw/excalidraw-mcp.git/", "excalidraw-mcp", false},
		{"https://host/org/repo?ref=x", "repo", false},
		{"https://host/org/repo.git#main", "repo", false},
		{"ssh://git@host:2222/org/repo.git/?x=1", "repo", false},
		{"git@github.com:owner/server.git", "server", false},
		{"git@host:server.git", "server", false},
		{"", "", true},
		{"/", "", true},
		{".git", "", true},
		{"https://github.com/", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			got, err := ResolveName(tt.source)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidSource))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocateEntry(t *testing.T) {
	dir := t.TempDir()

	entry, ok := LocateEntry(dir)
	assert.False(t, ok)
	assert.Equal(t, filepath.Join(dir, "dist", "index.js"), entry)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.js"), nil, 0o644))
	entry, ok = LocateEntry(dir)
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "index.js"), entry)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "dist"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dist", "index.js"), nil, 0o644))
	entry, ok = LocateEntry(dir)
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "dist", "index.js"), entry)
}

type env struct {
	root         string
	externalPath string
	store        *registry.Store
	runner       *mocks.MockRunner
	installer    *Installer
}

func newEnv(t *testing.T) *env {
	t.Helper()
	base := t.TempDir()
	logger := logging.ForTest(t)
	e := &env{
		root:         filepath.Join(base, "mcps"),
		externalPath: filepath.Join(base, "mcporter.json"),
		runner:       mocks.NewMockRunner(t),
	}
	e.store = registry.NewStore(filepath.Join(base, "mcps.json"),
		registry.WithLogger(logger),
		registry.WithSyncer(reconcile.NewSyncer(e.externalPath)),
	)
	e.installer = New(e.root, e.store, e.runner, WithLogger(logger))
	return e
}

func ok() *shell.Result { return &shell.Result{} }

func failed(code int, stderr string) *shell.Result {
	return &shell.Result{ExitCode: code, Stderr: []byte(stderr)}
}

func isCmd(name string, args ...string) any {
	return mock.MatchedBy(func(c shell.Cmd) bool {
		if c.Name != name || len(c.Args) < len(args) {
			return false
		}
		for i, a := range args {
			if c.Args[i] != a {
				return false
			}
		}
		return true
	})
}

// expectClone makes the mocked clone create dir with the given files.
func (e *env) expectClone(files ...string) {
	e.runner.EXPECT().Run(mock.Anything, isCmd("git", "clone")).
		RunAndReturn(func(_ context.Context, c shell.Cmd) (*shell.Result, error) {
			dir := c.Args[len(c.Args)-1]
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
			for _, f := range files {
				p := filepath.Join(dir, f)
				if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
					return nil, err
				}
				if err := os.WriteFile(p, []byte("// server"), 0o644); err != nil {
					return nil, err
				}
			}
			return ok(), nil
		}).Once()
}

func (e *env) external(t *testing.T) map[string]any {
	t.Helper()
	data, err := os.ReadFile(e.externalPath)
	require.NoError(t, err)
	var doc struct {
		Servers map[string]any `json:"mcpServers"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc.Servers
}

func TestInstall_Success(t *testing.T) {
	e := newEnv(t)
	e.expectClone("dist/index.js")
	e.runner.EXPECT().Run(mock.Anything, isCmd("npm", "install")).Return(ok(), nil).Once()
	e.runner.EXPECT().Run(mock.Anything, isCmd("npm", "run", "build")).Return(ok(), nil).Once()

	res, err := e.installer.Install(context.Background(), source)
	require.NoError(t, err)

	dir := filepath.Join(e.root, "excalidraw-mcp")
	entry := filepath.Join(dir, "dist", "index.js")
	assert.Equal(t, "excalidraw-mcp", res.Name)
	assert.Equal(t, dir, res.Dir)
	assert.Equal(t, entry, res.EntryPoint)
	assert.True(t, res.EntryResolved)
	assert.NoError(t, res.BuildWarning)
	assert.False(t, res.Save.Degraded())

	reg, err := e.store.Load()
	require.NoError(t, err)
	srv, found := reg.Get("excalidraw-mcp")
	require.True(t, found)
	assert.Equal(t, "node", srv.Command)
	assert.Equal(t, []string{entry, "--stdio"}, srv.Args)
	assert.True(t, srv.Enabled)

	assert.Equal(t, map[string]any{
		"command": "node",
		"args":    []any{entry, "--stdio"},
	}, e.external(t)["excalidraw-mcp"])
}

func TestInstall_BuildFailureIsTolerated(t *testing.T) {
	e := newEnv(t)
	e.expectClone("index.js")
	e.runner.EXPECT().Run(mock.Anything, isCmd("npm", "install")).Return(ok(), nil).Once()
	e.runner.EXPECT().Run(mock.Anything, isCmd("npm", "run", "build")).
		Return(failed(1, `npm ERR! Missing script: "build"`), nil).Once()

	res, err := e.installer.Install(context.Background(), source)
	require.NoError(t, err)

	require.Error(t, res.BuildWarning)
	assert.ErrorIs(t, res.BuildWarning, ErrBuildDegraded)
	assert.Contains(t, res.BuildWarning.Error(), "Missing script")
	assert.Equal(t, filepath.Join(res.Dir, "index.js"), res.EntryPoint)
	assert.Contains(t, e.external(t), "excalidraw-mcp")
}

func TestInstall_UnresolvedEntryIsRecorded(t *testing.T) {
	e := newEnv(t)
	e.expectClone()
	e.runner.EXPECT().Run(mock.Anything, isCmd("npm", "install")).Return(ok(), nil).Once()
	e.runner.EXPECT().Run(mock.Anything, isCmd("npm", "run", "build")).Return(ok(), nil).Once()

	res, err := e.installer.Install(context.Background(), source)
	require.NoError(t, err)
	assert.False(t, res.EntryResolved)
	assert.Equal(t, filepath.Join(res.Dir, "dist", "index.js"), res.EntryPoint)
}

func TestInstall_FetchFailure(t *testing.T) {
	e := newEnv(t)
	e.runner.EXPECT().Run(mock.Anything, isCmd("git", "clone")).
		Return(failed(128, "fatal: repository not found"), nil).Once()

	_, err := e.installer.Install(context.Background(), source)
	require.Error(t, err)

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, StepFetch, stepErr.Step)
	assert.Equal(t, "fatal: repository not found", stepErr.Output)
	assert.True(t, errors.Is(err, ErrFetchFailed))

	reg, err := e.store.Load()
	require.NoError(t, err)
	assert.Empty(t, reg)
}

func TestInstall_DependencyFailureStopsPipeline(t *testing.T) {
	e := newEnv(t)
	e.expectClone("dist/index.js")
	e.runner.EXPECT().Run(mock.Anything, isCmd("npm", "install")).
		Return(failed(1, "npm ERR! ERESOLVE"), nil).Once()

	_, err := e.installer.Install(context.Background(), source)

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, StepDependencies, stepErr.Step)
	assert.Contains(t, stepErr.Output, "ERESOLVE")
	assert.True(t, errors.Is(err, ErrDependencyInstallFailed))
}

func TestInstall_SpawnFailureIsFatal(t *testing.T) {
	e := newEnv(t)
	e.runner.EXPECT().Run(mock.Anything, isCmd("git", "clone")).
		Return(nil, errors.Wrap(shell.ErrNotFound, "git")).Once()

	_, err := e.installer.Install(context.Background(), source)
	assert.True(t, errors.Is(err, ErrFetchFailed))
	assert.ErrorIs(t, err, shell.ErrNotFound)
}

func TestInstall_InvalidSource(t *testing.T) {
	e := newEnv(t)

	for _, src := range []string{"", "https://github.com/", "-oProxyCommand=x/evil"} {
		_, err := e.installer.Install(context.Background(), src)
		var stepErr *StepError
		require.True(t, errors.As(err, &stepErr), src)
		assert.Equal(t, StepResolve, stepErr.Step)
		assert.True(t, errors.Is(err, ErrInvalidSource))
	}
}

func TestInstall_Idempotent(t *testing.T) {
	e := newEnv(t)
	for range 2 {
		e.expectClone("dist/index.js")
	}
	e.runner.EXPECT().Run(mock.Anything, isCmd("npm", "install")).Return(ok(), nil).Twice()
	e.runner.EXPECT().Run(mock.Anything, isCmd("npm", "run", "build")).Return(ok(), nil).Twice()

	first, err := e.installer.Install(context.Background(), source)
	require.NoError(t, err)

	// leftover from the first checkout must be cleared
	stale := filepath.Join(first.Dir, "stale.txt")
	require.NoError(t, os.WriteFile(stale, nil, 0o644))
	externalBefore, err := os.ReadFile(e.externalPath)
	require.NoError(t, err)

	second, err := e.installer.Install(context.Background(), source)
	require.NoError(t, err)
	assert.Equal(t, first.EntryPoint, second.EntryPoint)
	assert.NoFileExists(t, stale)

	reg, err := e.store.Load()
	require.NoError(t, err)
	assert.Len(t, reg, 1)

	externalAfter, err := os.ReadFile(e.externalPath)
	require.NoError(t, err)
	assert.Equal(t, string(externalBefore), string(externalAfter))
}

func TestInstall_CustomToolchain(t *testing.T) {
	e := newEnv(t)
	e.installer = New(e.root, e.store, e.runner, WithRuntime("bun"), WithPackageManager("pnpm"))
	e.expectClone("index.js")
	e.runner.EXPECT().Run(mock.Anything, isCmd("pnpm", "install")).Return(ok(), nil).Once()
	e.runner.EXPECT().Run(mock.Anything, isCmd("pnpm", "run", "build")).Return(ok(), nil).Once()

	res, err := e.installer.Install(context.Background(), source)
	require.NoError(t, err)
	assert.Equal(t, "bun", res.Server.Command)
}

func TestUninstall(t *testing.T) {
	e := newEnv(t)
	e.expectClone("dist/index.js")
	e.runner.EXPECT().Run(mock.Anything, isCmd("npm", "install")).Return(ok(), nil).Once()
	e.runner.EXPECT().Run(mock.Anything, isCmd("npm", "run", "build")).Return(ok(), nil).Once()

	installed, err := e.installer.Install(context.Background(), source)
	require.NoError(t, err)

	res, err := e.installer.Uninstall(context.Background(), "excalidraw-mcp")
	require.NoError(t, err)
	assert.True(t, res.DirRemoved)
	assert.True(t, res.EntryRemoved)
	assert.NoDirExists(t, installed.Dir)

	reg, err := e.store.Load()
	require.NoError(t, err)
	assert.Empty(t, reg)

	assert.NotContains(t, e.external(t), "excalidraw-mcp")

	// absent directory and entry are not errors
	res, err = e.installer.Uninstall(context.Background(), "excalidraw-mcp")
	require.NoError(t, err)
	assert.False(t, res.DirRemoved)
	assert.False(t, res.EntryRemoved)
}

func TestUninstall_RejectsTraversal(t *testing.T) {
	e := newEnv(t)
	_, err := e.installer.Uninstall(context.Background(), "../etc")
	assert.True(t, errors.Is(err, ErrInvalidSource))
}
