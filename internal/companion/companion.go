// Package companion manages the companion CLI that consumes the external MCP
// store. It is installed and removed globally through the package manager.
// The package also drives the platform CLI's plugin installer.
package companion

import (
	"context"
	"log/slog"
	"strings"

	"github.com/thoreinstein/clawmgr/internal/errors"
	"github.com/thoreinstein/clawmgr/internal/logging"
	"github.com/thoreinstein/clawmgr/internal/shell"
)

// Defaults for the companion tool.
const (
	DefaultTool           = "mcporter"
	DefaultPackage        = "mcporter"
	DefaultPackageManager = "npm"
)

// Sentinel errors.
var (
	ErrInstallFailed   = errors.New("companion install failed")
	ErrUninstallFailed = errors.New("companion uninstall failed")
)

// Status describes the companion tool on this machine.
type Status struct {
	Tool      string `json:"tool"`
	Installed bool   `json:"installed"`
	Path      string `json:"path,omitempty"`
	Version   string `json:"version,omitempty"`
}

// Manager checks, installs, and removes the companion tool.
type Manager struct {
	runner         shell.Runner
	pathEnv        string
	tool           string
	pkg            string
	packageManager string
	logger         *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithTool sets the executable name to look for.
func WithTool(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.tool = name
		}
	}
}

// WithPackage sets the package installed and removed by the package manager.
func WithPackage(pkg string) Option {
	return func(m *Manager) {
		if pkg != "" {
			m.pkg = pkg
		}
	}
}

// WithPackageManager sets the package manager executable.
func WithPackageManager(pm string) Option {
	return func(m *Manager) {
		if pm != "" {
			m.packageManager = pm
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// New returns a Manager that resolves executables on pathEnv.
func New(runner shell.Runner, pathEnv string, opts ...Option) *Manager {
	m := &Manager{
		runner:         runner,
		pathEnv:        pathEnv,
		tool:           DefaultTool,
		pkg:            DefaultPackage,
		packageManager: DefaultPackageManager,
		logger:         logging.NewDiscard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Tool returns the executable name being managed.
func (m *Manager) Tool() string {
	return m.tool
}

// Status reports whether the tool resolves on the search path. The version
// is best effort: a tool that does not answer --version is still installed.
func (m *Manager) Status(ctx context.Context) (*Status, error) {
	st := &Status{Tool: m.tool}
	path, err := shell.LookPath(m.tool, m.pathEnv)
	if errors.Is(err, shell.ErrNotFound) {
		return st, nil
	}
	if err != nil {
		return nil, err
	}
	st.Installed = true
	st.Path = path

	res, err := m.runner.Run(ctx, shell.Cmd{Name: path, Args: []string{"--version"}})
	switch {
	case err != nil:
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		m.logger.Debug("version query failed", "tool", m.tool, "error", err)
	case res.Success():
		st.Version = firstLine(res.Stdout)
	}
	return st, nil
}

// Install runs "<pm> install -g <package>".
func (m *Manager) Install(ctx context.Context) error {
	return m.global(ctx, "install", ErrInstallFailed)
}

// Uninstall runs "<pm> uninstall -g <package>".
func (m *Manager) Uninstall(ctx context.Context) error {
	return m.global(ctx, "uninstall", ErrUninstallFailed)
}

func (m *Manager) global(ctx context.Context, verb string, sentinel error) error {
	if !shell.Exists(m.packageManager, m.pathEnv) {
		return errors.WithHintf(
			errors.Wrapf(sentinel, "%s not found on PATH", m.packageManager),
			"Install %s or set package_manager in the clawmgr config", m.packageManager)
	}

	cmd := shell.Cmd{Name: m.packageManager, Args: []string{verb, "-g", m.pkg}}
	m.logger.Info("running package manager", "cmd", cmd.String())
	res, err := m.runner.Run(ctx, cmd)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "%s %s", verb, m.pkg), sentinel)
	}
	if !res.Success() {
		return errors.Wrapf(sentinel, "%s %s: %s", verb, m.pkg, res.Diagnostics())
	}
	return nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
