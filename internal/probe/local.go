package probe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/thoreinstein/clawmgr/internal/errors"
	"github.com/thoreinstein/clawmgr/internal/mcp"
	"github.com/thoreinstein/clawmgr/internal/shell"
)

const maxStderrBytes = 64 * 1024

// Frame wraps a JSON-RPC message in the Content-Length framing written to
// local servers, followed by a newline for servers that read lines.
func Frame(msg string) string {
	return fmt.Sprintf("Content-Length: %d\r\n\r\n%s\n", len(msg), msg)
}

// Local spawns s, writes the initialize request and watches the process
// for the grace period without reading its stdout. A clean exit or a
// process still running at the deadline is reachable; a nonzero exit is
// unreachable with its stderr. The process and anything it spawned are
// gone when Local returns.
func (p *Prober) Local(ctx context.Context, s *mcp.Server) (*Result, error) {
	bin, err := shell.LookPath(s.Command, p.pathEnv)
	if err != nil {
		return unreachable("failed to start %s: %v", s.Command, err), nil
	}

	runCtx, kill := context.WithCancel(ctx)
	defer kill()

	cmd := exec.CommandContext(runCtx, bin, s.Args...)
	cmd.Env = shell.Environ(p.pathEnv, s.Env)
	cmd.WaitDelay = time.Second
	configureProcess(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return unreachable("failed to start %s: %v", s.Command, err), nil
	}
	// Piped so the server sees a pipe, never read.
	if _, err := cmd.StdoutPipe(); err != nil {
		return unreachable("failed to start %s: %v", s.Command, err), nil
	}
	stderr := &cappedBuffer{max: maxStderrBytes}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return unreachable("failed to start %s: %v", s.Command, err), nil
	}
	defer func() { _ = killProcessGroup(cmd) }()
	p.logger.Debug("spawned server", "cmd", shell.Cmd{Name: s.Command, Args: s.Args}.String(), "pid", cmd.Process.Pid)

	// A server that exits before reading makes this fail; the exit status
	// below is what matters.
	_, _ = io.WriteString(stdin, Frame(InitializeRequest))

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(p.grace)
	defer timer.Stop()

	select {
	case err := <-done:
		if exitedCleanly(cmd, err) {
			return reachable("", "process exited cleanly"), nil
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return unreachable("exited with code %d: %s", exitErr.ExitCode(), stderr.String()), nil
		}
		return unreachable("%v", err), nil

	case <-timer.C:
		kill()
		<-done
		return reachable("", fmt.Sprintf("still running after %s, terminated", p.grace)), nil

	case <-ctx.Done():
		kill()
		<-done
		return unreachable("%v", ctx.Err()), ctx.Err()
	}
}

// exitedCleanly reports a zero exit status. A child left holding stderr
// makes Wait give up with ErrWaitDelay even though the server itself
// exited zero.
func exitedCleanly(cmd *exec.Cmd, err error) bool {
	if err == nil {
		return true
	}
	return errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil && cmd.ProcessState.Success()
}

// cappedBuffer keeps the first max bytes written to it.
type cappedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	max int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := b.max - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(b.buf.String())
}
