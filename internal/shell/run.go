package shell

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/thoreinstein/clawmgr/internal/errors"
	"github.com/thoreinstein/clawmgr/internal/logging"
	"github.com/thoreinstein/clawmgr/internal/redact"
)

// Cmd describes one external command invocation.
type Cmd struct {
	Name string
	Args []string

	// Dir is the working directory; empty means the current one.
	Dir string

	// Env is layered over the process environment.
	Env map[string]string
}

// String renders the command line with secrets masked.
func (c Cmd) String() string {
	return strings.Join(append([]string{c.Name}, redact.Args(c.Args)...), " ")
}

// Result is the captured outcome of a command that started.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Success reports a zero exit status.
func (r *Result) Success() bool {
	return r != nil && r.ExitCode == 0
}

// Diagnostics returns stderr, or stdout when stderr is empty, trimmed.
// Package managers are inconsistent about which stream carries the error.
func (r *Result) Diagnostics() string {
	if r == nil {
		return ""
	}
	if s := strings.TrimSpace(string(r.Stderr)); s != "" {
		return s
	}
	return strings.TrimSpace(string(r.Stdout))
}

// Runner runs external commands. A nonzero exit is reported through
// Result.ExitCode, not as an error; the error is for commands that could
// not be started or were canceled.
type Runner interface {
	Run(ctx context.Context, cmd Cmd) (*Result, error)
}

// ExecRunner runs commands with os/exec on an extended search path.
type ExecRunner struct {
	path   string
	logger *slog.Logger
}

// NewRunner returns an ExecRunner resolving commands on pathEnv.
func NewRunner(pathEnv string, logger *slog.Logger) *ExecRunner {
	if logger == nil {
		logger = logging.NewDiscard()
	}
	return &ExecRunner{path: pathEnv, logger: logger}
}

// Path returns the search path commands are resolved on.
func (r *ExecRunner) Path() string {
	return r.path
}

// Run executes cmd and captures both output streams.
func (r *ExecRunner) Run(ctx context.Context, cmd Cmd) (*Result, error) {
	bin, err := LookPath(cmd.Name, r.path)
	if err != nil {
		return nil, err
	}

	c := exec.CommandContext(ctx, bin, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = Environ(r.path, cmd.Env)
	c.WaitDelay = 2 * time.Second

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	r.logger.Debug("running command", "cmd", cmd.String(), "dir", cmd.Dir)
	start := time.Now()
	runErr := c.Run()
	res := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, errors.Wrapf(ctxErr, "%s", cmd.Name)
		}
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return nil, errors.Wrapf(runErr, "starting %s", cmd.Name)
		}
		res.ExitCode = exitErr.ExitCode()
	}

	r.logger.Log(ctx, logging.LevelTrace, "command finished",
		"cmd", cmd.Name,
		"exit_code", res.ExitCode,
		"duration", res.Duration,
	)
	return res, nil
}
