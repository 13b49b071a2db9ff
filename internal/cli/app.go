// Package cli wires clawmgr's components together from the loaded
// configuration. Commands get the wired App from their context.
package cli

import (
	"context"
	"log/slog"

	"github.com/thoreinstein/clawmgr/cmd"
	"github.com/thoreinstein/clawmgr/internal/backup"
	"github.com/thoreinstein/clawmgr/internal/companion"
	"github.com/thoreinstein/clawmgr/internal/config"
	"github.com/thoreinstein/clawmgr/internal/configstore"
	"github.com/thoreinstein/clawmgr/internal/doctor"
	"github.com/thoreinstein/clawmgr/internal/errors"
	"github.com/thoreinstein/clawmgr/internal/installer"
	"github.com/thoreinstein/clawmgr/internal/logging"
	"github.com/thoreinstein/clawmgr/internal/probe"
	"github.com/thoreinstein/clawmgr/internal/reconcile"
	"github.com/thoreinstein/clawmgr/internal/registry"
	"github.com/thoreinstein/clawmgr/internal/shell"
)

// ErrNoApp is returned when a command runs without the root setup.
var ErrNoApp = errors.New("application not initialized")

// App holds the components built from one configuration.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	PathEnv string
	Runner  shell.Runner
	Backups *backup.Manager
	Syncer  *reconcile.Syncer
	Store   *registry.Store
	// Platform is the platform's main document.
	Platform *configstore.Store
}

// Option adjusts an App after the defaults are wired.
type Option func(*App)

// WithRunner replaces the process runner, for tests.
func WithRunner(r shell.Runner) Option {
	return func(a *App) {
		a.Runner = r
	}
}

// WithBackups replaces the backup manager.
func WithBackups(m *backup.Manager) Option {
	return func(a *App) {
		a.Backups = m
	}
}

// New wires an App. Both the companion store and the platform document are
// snapshotted once per process before their first rewrite.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *App {
	if logger == nil {
		logger = logging.NewDiscard()
	}
	backup.Version = cmd.Version

	pathEnv := shell.ExtendedPath(cfg.ExtraPaths)
	a := &App{
		Config:  cfg,
		Logger:  logger,
		PathEnv: pathEnv,
		Runner:  shell.NewRunner(pathEnv, logger),
		Backups: backup.NewManager(backup.WithRetentionCount(cfg.Backup.Retention)),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.Syncer = reconcile.NewSyncer(cfg.ExternalStorePath,
		reconcile.WithLogger(logger),
		reconcile.WithBeforeWrite(a.snapshot(backup.TargetExternalStore)),
	)
	a.Store = registry.NewStore(cfg.RegistryPath,
		registry.WithLogger(logger),
		registry.WithSyncer(a.Syncer),
	)
	a.Platform = configstore.New(cfg.PlatformConfigPath,
		configstore.WithLogger(logger),
		configstore.WithBeforeWrite(a.snapshot(backup.TargetPlatformConfig)),
	)
	return a
}

func (a *App) snapshot(target string) func(string) error {
	return func(path string) error {
		if err := a.Backups.EnsureBackedUp(target, []string{path}); err != nil {
			return errors.Wrapf(err, "backing up %s", path)
		}
		return nil
	}
}

// Installer returns an installer rooted at the configured install root.
func (a *App) Installer() *installer.Installer {
	return installer.New(a.Config.InstallRoot, a.Store, a.Runner,
		installer.WithRuntime(a.Config.Runtime),
		installer.WithPackageManager(a.Config.PackageManager),
		installer.WithLogger(a.Logger),
	)
}

// Prober returns a prober using the configured timings. opts are applied
// last.
func (a *App) Prober(opts ...probe.Option) *probe.Prober {
	base := []probe.Option{
		probe.WithGracePeriod(a.Config.Probe.GracePeriod),
		probe.WithHTTPTimeout(a.Config.Probe.HTTPTimeout),
		probe.WithSearchPath(a.PathEnv),
		probe.WithLogger(a.Logger),
	}
	return probe.New(append(base, opts...)...)
}

// Companion returns the companion tool manager.
func (a *App) Companion() *companion.Manager {
	return companion.New(a.Runner, a.PathEnv,
		companion.WithTool(a.Config.CompanionTool),
		companion.WithPackage(a.Config.CompanionPackage),
		companion.WithPackageManager(a.Config.PackageManager),
		companion.WithLogger(a.Logger),
	)
}

// Plugins returns the platform plugin installer.
func (a *App) Plugins() *companion.Plugins {
	return companion.NewPlugins(a.Runner, a.PathEnv, a.Config.PlatformCLI, a.Logger)
}

// Doctor returns a runner with every diagnostic check registered.
func (a *App) Doctor() *doctor.Runner {
	cfg := a.Config
	r := doctor.NewRunner()
	r.AddCheck(doctor.NewToolCheck(a.PathEnv,
		doctor.Tool{Name: "git", Purpose: "clone MCP server repositories"},
		doctor.Tool{Name: cfg.Runtime, Purpose: "run installed MCP servers"},
		doctor.Tool{Name: cfg.PackageManager, Purpose: "install server dependencies"},
		doctor.Tool{Name: cfg.CompanionTool, Purpose: "use the synced servers", Optional: true},
	))
	r.AddCheck(doctor.NewConfigSyntaxCheck(
		doctor.SyntaxTarget{Label: "registry", Path: cfg.RegistryPath, Decode: func(b []byte) error {
			_, err := registry.Decode(b)
			return err
		}},
		doctor.SyntaxTarget{Label: "companion store", Path: cfg.ExternalStorePath, Decode: func(b []byte) error {
			_, err := reconcile.Diff(nil, b)
			return err
		}},
		doctor.SyntaxTarget{Label: "platform config", Path: cfg.PlatformConfigPath, Decode: func(b []byte) error {
			_, err := configstore.Decode(b)
			return err
		}},
	))
	r.AddCheck(doctor.NewPathPermissionCheck(
		doctor.Target{Label: "registry", Path: cfg.RegistryPath, Private: true},
		doctor.Target{Label: "platform config", Path: cfg.PlatformConfigPath, Private: true},
		doctor.Target{Label: "companion store", Path: cfg.ExternalStorePath},
		doctor.Target{Label: "install root", Path: cfg.InstallRoot, Dir: true},
		doctor.Target{Label: "backups", Path: a.Backups.Dir(), Dir: true},
	))
	r.AddCheck(doctor.NewDriftCheck(a.Store))
	r.AddCheck(doctor.NewEntryPointCheck(a.Store, cfg.InstallRoot))
	return r
}

type ctxKey struct{}

// NewContext returns ctx carrying app.
func NewContext(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, ctxKey{}, app)
}

// FromContext returns the App set by NewContext.
func FromContext(ctx context.Context) (*App, error) {
	if ctx != nil {
		if app, ok := ctx.Value(ctxKey{}).(*App); ok {
			return app, nil
		}
	}
	return nil, ErrNoApp
}
