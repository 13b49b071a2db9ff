// Package editor opens the registry in the user's editor.
package editor

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/thoreinstein/clawmgr/internal/errors"
	"github.com/thoreinstein/clawmgr/internal/shell"
)

// ErrNoEditor is returned when no editor is configured and no fallback is
// installed.
var ErrNoEditor = errors.New("no editor found")

// fallbacks are tried in order when neither $VISUAL nor $EDITOR is set.
var fallbacks = []string{"nano", "vim", "vi"}

// Editor runs an editor attached to the given streams.
type Editor struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// PathEnv is searched for the editor binary. Empty means $PATH.
	PathEnv string
}

// New returns an Editor attached to the process's terminal.
func New(pathEnv string) *Editor {
	return &Editor{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr, PathEnv: pathEnv}
}

// Open edits path and waits for the editor to exit. The editor command may
// carry arguments, e.g. VISUAL="code --wait".
func (e *Editor) Open(ctx context.Context, path string) error {
	argv, err := e.command()
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, argv[0], append(argv[1:], path)...)
	cmd.Stdin = e.Stdin
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	cmd.Env = shell.Environ(e.pathEnv(), nil)
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "running editor %s", argv[0])
	}
	return nil
}

// command resolves the editor argv with the binary made absolute.
func (e *Editor) command() ([]string, error) {
	for _, key := range []string{"VISUAL", "EDITOR"} {
		fields := strings.Fields(os.Getenv(key))
		if len(fields) == 0 {
			continue
		}
		bin, err := shell.LookPath(fields[0], e.pathEnv())
		if err != nil {
			return nil, errors.WithHintf(errors.Wrapf(ErrNoEditor, "$%s=%s", key, fields[0]),
				"check that %s is installed or point $%s at another editor", fields[0], key)
		}
		return append([]string{bin}, fields[1:]...), nil
	}
	for _, name := range fallbacks {
		if bin, err := shell.LookPath(name, e.pathEnv()); err == nil {
			return []string{bin}, nil
		}
	}
	return nil, errors.WithHint(ErrNoEditor, "set $EDITOR")
}

func (e *Editor) pathEnv() string {
	if e.PathEnv != "" {
		return e.PathEnv
	}
	return os.Getenv("PATH")
}
