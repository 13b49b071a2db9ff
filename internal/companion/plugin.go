package companion

import (
	"context"
	"log/slog"
	"strings"

	"github.com/thoreinstein/clawmgr/internal/errors"
	"github.com/thoreinstein/clawmgr/internal/logging"
	"github.com/thoreinstein/clawmgr/internal/shell"
)

// DefaultPlatformCLI is the platform's own command line tool.
const DefaultPlatformCLI = "openclaw"

// Plugin install errors.
var (
	ErrInvalidPluginSource = errors.New("invalid plugin source")
	ErrPluginInstallFailed = errors.New("plugin install failed")
)

// Plugins installs MCP servers packaged as platform plugins. The platform
// CLI owns the result; the registry is not touched.
type Plugins struct {
	runner  shell.Runner
	pathEnv string
	cli     string
	logger  *slog.Logger
}

// NewPlugins returns a plugin installer that runs cli from pathEnv. An
// empty cli means DefaultPlatformCLI.
func NewPlugins(runner shell.Runner, pathEnv, cli string, logger *slog.Logger) *Plugins {
	if cli == "" {
		cli = DefaultPlatformCLI
	}
	if logger == nil {
		logger = logging.NewDiscard()
	}
	return &Plugins{runner: runner, pathEnv: pathEnv, cli: cli, logger: logger}
}

// Install runs "<cli> plugins install <source>" and returns what the CLI
// printed.
func (p *Plugins) Install(ctx context.Context, source string) (string, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return "", errors.Wrap(ErrInvalidPluginSource, "source is empty")
	}
	if strings.HasPrefix(source, "-") {
		return "", errors.Wrapf(ErrInvalidPluginSource, "%q looks like an option", source)
	}
	if !shell.Exists(p.cli, p.pathEnv) {
		return "", errors.WithHintf(
			errors.Wrapf(ErrPluginInstallFailed, "%s not found on PATH", p.cli),
			"Install %s or set platform_cli in the clawmgr config", p.cli)
	}

	cmd := shell.Cmd{Name: p.cli, Args: []string{"plugins", "install", source}}
	p.logger.Info("installing plugin", "cmd", cmd.String())
	res, err := p.runner.Run(ctx, cmd)
	if err != nil {
		return "", errors.Mark(errors.Wrapf(err, "plugins install %s", source), ErrPluginInstallFailed)
	}
	if !res.Success() {
		return "", errors.Wrapf(ErrPluginInstallFailed, "plugins install %s: %s", source, res.Diagnostics())
	}
	return strings.TrimSpace(res.Stdout), nil
}
