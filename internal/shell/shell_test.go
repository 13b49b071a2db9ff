package shell

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/clawmgr/internal/errors"
	"github.com/thoreinstein/clawmgr/internal/logging"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are unix only")
	}
}

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestExtendedPath(t *testing.T) {
	t.Setenv("PATH", strings.Join([]string{"/a", "/b", "/a", ""}, string(os.PathListSeparator)))

	got := filepath.SplitList(ExtendedPath([]string{"/extra", "/b"}))

	require.GreaterOrEqual(t, len(got), 3)
	assert.Equal(t, []string{"/a", "/b", "/extra"}, got[:3])

	seen := map[string]bool{}
	for _, dir := range got {
		assert.NotEmpty(t, dir)
		assert.False(t, seen[dir], "duplicate %s", dir)
		seen[dir] = true
	}
}

func TestLookPath(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()
	script := writeScript(t, dir, "tool", "exit 0")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data"), []byte("x"), 0o644))

	got, err := LookPath("tool", "/nonexistent"+string(os.PathListSeparator)+dir)
	require.NoError(t, err)
	assert.Equal(t, script, got)

	_, err = LookPath("data", dir)
	assert.True(t, errors.Is(err, ErrNotFound), "non-executable files do not resolve")

	_, err = LookPath("missing", dir)
	assert.True(t, errors.Is(err, ErrNotFound))

	got, err = LookPath(script, "")
	require.NoError(t, err)
	assert.Equal(t, script, got)

	assert.True(t, Exists("tool", dir))
	assert.False(t, Exists("", dir))
}

func TestEnviron(t *testing.T) {
	t.Setenv("PATH", "/original")
	t.Setenv("CLAWMGR_SHELL_TEST", "base")

	env := Environ("/new", map[string]string{"CLAWMGR_SHELL_TEST": "override"})

	var paths, values []string
	for _, kv := range env {
		k, v, _ := strings.Cut(kv, "=")
		switch k {
		case "PATH":
			paths = append(paths, v)
		case "CLAWMGR_SHELL_TEST":
			values = append(values, v)
		}
	}
	assert.Equal(t, []string{"/new"}, paths)
	require.NotEmpty(t, values)
	assert.Equal(t, "override", values[len(values)-1])
}

func TestExecRunner(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()
	writeScript(t, dir, "ok", `echo "out:$CLAWMGR_X"; pwd`)
	writeScript(t, dir, "fail", `echo "broken" >&2; exit 3`)
	r := NewRunner(dir+string(os.PathListSeparator)+os.Getenv("PATH"), logging.ForTest(t))
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		workdir := t.TempDir()
		res, err := r.Run(ctx, Cmd{Name: "ok", Dir: workdir, Env: map[string]string{"CLAWMGR_X": "1"}})
		require.NoError(t, err)
		assert.True(t, res.Success())
		assert.Contains(t, string(res.Stdout), "out:1")
		assert.Contains(t, string(res.Stdout), filepath.Base(workdir))
	})

	t.Run("nonzero exit", func(t *testing.T) {
		res, err := r.Run(ctx, Cmd{Name: "fail"})
		require.NoError(t, err)
		assert.False(t, res.Success())
		assert.Equal(t, 3, res.ExitCode)
		assert.Equal(t, "broken", res.Diagnostics())
	})

	t.Run("not found", func(t *testing.T) {
		_, err := r.Run(ctx, Cmd{Name: "clawmgr-does-not-exist"})
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := r.Run(ctx, Cmd{Name: "ok"})
		assert.Error(t, err)
	})
}

func TestCmdString_MasksSecrets(t *testing.T) {
	c := Cmd{Name: "server", Args: []string{"--token=supersecretvalue", "--port", "80"}}
	s := c.String()
	assert.NotContains(t, s, "supersecretvalue")
	assert.Contains(t, s, "--port 80")
}

func TestResult_Diagnostics(t *testing.T) {
	assert.Equal(t, "", (*Result)(nil).Diagnostics())
	assert.Equal(t, "from stdout", (&Result{Stdout: []byte(" from stdout\n")}).Diagnostics())
}
