//go:build !windows

package probe

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/clawmgr/internal/errors"
)

func TestLocal_TerminatesRunningServer(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "pid")
	p := New(WithGracePeriod(500 * time.Millisecond))

	res, err := p.Local(context.Background(), helperServer("hang", map[string]string{"HELPER_PID_FILE": pidFile}))
	require.NoError(t, err)
	require.True(t, res.Reachable)

	pid := readPid(t, pidFile)

	// reaped by Wait, so the pid no longer exists
	err = syscall.Kill(pid, 0)
	assert.ErrorIs(t, err, syscall.ESRCH)
}

func TestLocal_CleanExitWithBackgroundChild(t *testing.T) {
	childFile := filepath.Join(t.TempDir(), "child")
	p := New(WithGracePeriod(10 * time.Second))

	res, err := p.Local(context.Background(), helperServer("exit0", map[string]string{"HELPER_CHILD_PID_FILE": childFile}))
	require.NoError(t, err)
	assert.True(t, res.Reachable, res.String())
	assert.Contains(t, res.Detail, "exited cleanly")

	pid := readPid(t, childFile)
	assert.Eventually(t, func() bool { return processGone(pid) }, 5*time.Second, 50*time.Millisecond)
}

func TestDeep_StdioKillsChildren(t *testing.T) {
	childFile := filepath.Join(t.TempDir(), "child")
	p := New(WithDeep(true), WithHTTPTimeout(20*time.Second))

	res, err := p.Probe(context.Background(), helperServer("mcp", map[string]string{"HELPER_CHILD_PID_FILE": childFile}))
	require.NoError(t, err)
	assert.True(t, res.Reachable, res.String())

	pid := readPid(t, childFile)
	assert.Eventually(t, func() bool { return processGone(pid) }, 5*time.Second, 50*time.Millisecond)
}

// readPid parses the pid a helper wrote to path.
func readPid(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	require.NoError(t, err)
	return pid
}

// processGone reports whether pid no longer runs. An orphan that was
// killed but not yet reaped by init shows up as a zombie.
func processGone(pid int) bool {
	if err := syscall.Kill(pid, 0); errors.Is(err, syscall.ESRCH) {
		return true
	}
	stat, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return false
	}
	i := bytes.LastIndexByte(stat, ')')
	return i >= 0 && bytes.HasPrefix(stat[i+1:], []byte(" Z"))
}
