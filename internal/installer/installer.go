package installer

import (
	"context"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/thoreinstein/clawmgr/internal/errors"
	"github.com/thoreinstein/clawmgr/internal/git"
	"github.com/thoreinstein/clawmgr/internal/logging"
	"github.com/thoreinstein/clawmgr/internal/mcp"
	"github.com/thoreinstein/clawmgr/internal/mcp/validator"
	"github.com/thoreinstein/clawmgr/internal/paths"
	"github.com/thoreinstein/clawmgr/internal/registry"
	"github.com/thoreinstein/clawmgr/internal/shell"
)

// StdioFlag is appended after the entry point of every installed server.
const StdioFlag = "--stdio"

// Result describes a completed install.
type Result struct {
	Name string
	Dir  string

	// EntryPoint is the script registered as the server's first argument.
	EntryPoint string

	// EntryResolved is false when neither candidate existed and EntryPoint
	// is the preferred built path recorded anyway.
	EntryResolved bool

	// BuildWarning holds the build step's failure, if any. It is marked
	// ErrBuildDegraded.
	BuildWarning error

	Server *mcp.Server
	Save   *registry.SaveResult
}

// UninstallResult describes a completed uninstall.
type UninstallResult struct {
	Name string
	Dir  string

	DirRemoved   bool
	EntryRemoved bool

	Save *registry.SaveResult
}

// Installer fetches, builds and registers MCP servers from git sources.
type Installer struct {
	root           string
	runtime        string
	packageManager string
	runner         shell.Runner
	git            *git.Client
	store          *registry.Store
	logger         *slog.Logger
}

// Option configures an Installer.
type Option func(*Installer)

// WithRuntime sets the interpreter registered as the server command.
func WithRuntime(name string) Option {
	return func(i *Installer) {
		if name != "" {
			i.runtime = name
		}
	}
}

// WithPackageManager sets the tool used for the install and build steps.
func WithPackageManager(name string) Option {
	return func(i *Installer) {
		if name != "" {
			i.packageManager = name
		}
	}
}

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(i *Installer) {
		if l != nil {
			i.logger = l
		}
	}
}

// New returns an Installer placing servers under root and registering
// them in store. Commands run through runner.
func New(root string, store *registry.Store, runner shell.Runner, opts ...Option) *Installer {
	i := &Installer{
		root:           root,
		runtime:        "node",
		packageManager: "npm",
		runner:         runner,
		git:            git.New(runner),
		store:          store,
		logger:         logging.NewDiscard(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Root returns the install root.
func (i *Installer) Root() string {
	return i.root
}

// Dir returns the install directory for name.
func (i *Installer) Dir(name string) string {
	return filepath.Join(i.root, name)
}

// ResolveName derives the server name from a source URL: trailing slashes
// and a ".git" suffix are dropped and the last path segment is taken.
// scp-like sources ("git@host:owner/repo.git") are handled the same way.
// A query or fragment on a URL source is ignored.
func ResolveName(source string) (string, error) {
	trimmed := strings.TrimSpace(source)
	if strings.Contains(trimmed, "://") {
		u, err := url.Parse(trimmed)
		if err != nil {
			return "", errors.Wrapf(ErrInvalidSource, "%q: %v", source, err)
		}
		trimmed = u.Path
	}
	trimmed = strings.TrimRight(trimmed, "/")
	trimmed = strings.TrimSuffix(trimmed, ".git")
	trimmed = strings.TrimRight(trimmed, "/")

	name := path.Base(trimmed)
	if i := strings.LastIndex(name, ":"); i >= 0 {
		name = name[i+1:]
	}
	if name == "" || name == "." || name == "/" {
		return "", errors.Wrapf(ErrInvalidSource, "no repository name in %q", source)
	}
	if err := validator.ValidateName(name); err != nil {
		return "", errors.Wrapf(ErrInvalidSource, "%q: %v", name, err)
	}
	return name, nil
}

// LocateEntry picks the entry script in dir: dist/index.js, then
// index.js. When neither exists it returns dist/index.js and false.
func LocateEntry(dir string) (string, bool) {
	built := filepath.Join(dir, "dist", "index.js")
	for _, candidate := range []string{built, filepath.Join(dir, "index.js")} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return built, false
}

// Install runs the full pipeline for source. The first fatal step stops it
// and is returned as a *StepError; a failed build is recorded in
// Result.BuildWarning and the pipeline continues.
func (i *Installer) Install(ctx context.Context, source string) (*Result, error) {
	name, err := ResolveName(source)
	if err != nil {
		return nil, stepErr(StepResolve, err, "")
	}
	if err := git.ValidateURL(source); err != nil {
		return nil, stepErr(StepResolve, errors.Mark(err, ErrInvalidSource), "")
	}

	log := i.logger.With("server", name)
	dir := i.Dir(name)
	res := &Result{Name: name, Dir: dir}

	if err := i.prepare(dir); err != nil {
		return nil, stepErr(StepPrepare, err, "")
	}

	log.Info("cloning", "source", source, "dir", dir)
	out, err := i.git.Clone(ctx, source, dir)
	if err != nil {
		return nil, stepErr(StepFetch, errors.Mark(err, ErrFetchFailed), "")
	}
	if !out.Success() {
		return nil, stepErr(StepFetch, errors.Wrapf(ErrFetchFailed, "git clone exited %d", out.ExitCode), out.Diagnostics())
	}

	log.Info("installing dependencies", "tool", i.packageManager)
	out, err = i.runner.Run(ctx, shell.Cmd{Name: i.packageManager, Args: []string{"install"}, Dir: dir})
	if err != nil {
		return nil, stepErr(StepDependencies, errors.Mark(err, ErrDependencyInstallFailed), "")
	}
	if !out.Success() {
		return nil, stepErr(StepDependencies,
			errors.Wrapf(ErrDependencyInstallFailed, "%s install exited %d", i.packageManager, out.ExitCode),
			out.Diagnostics())
	}

	log.Info("building")
	out, err = i.runner.Run(ctx, shell.Cmd{Name: i.packageManager, Args: []string{"run", "build"}, Dir: dir})
	switch {
	case ctx.Err() != nil:
		return nil, stepErr(StepBuild, ctx.Err(), "")
	case err != nil:
		res.BuildWarning = errors.Mark(err, ErrBuildDegraded)
	case !out.Success():
		res.BuildWarning = &StepError{
			Step:   StepBuild,
			Err:    errors.Wrapf(ErrBuildDegraded, "%s run build exited %d", i.packageManager, out.ExitCode),
			Output: out.Diagnostics(),
		}
	}
	if res.BuildWarning != nil {
		log.Warn("build failed, continuing", "error", res.BuildWarning)
	}

	res.EntryPoint, res.EntryResolved = LocateEntry(dir)
	if !res.EntryResolved {
		log.Warn("no entry point found, recording the built path", "entry", res.EntryPoint)
	}

	server := mcp.NewStdio(name, i.runtime, []string{res.EntryPoint, StdioFlag}, map[string]string{})
	save, err := i.store.Update(ctx, func(reg registry.Registry) error {
		return reg.Upsert(name, server)
	})
	if err != nil {
		return nil, stepErr(StepRegister, err, "")
	}
	res.Server = server
	res.Save = save

	log.Info("installed", "entry", res.EntryPoint)
	return res, nil
}

func (i *Installer) prepare(dir string) error {
	if _, err := os.Lstat(dir); err == nil {
		i.logger.Debug("removing previous installation", "dir", dir)
		if err := os.RemoveAll(dir); err != nil {
			return errors.Mark(errors.Wrapf(err, "removing %s", dir), errors.ErrIO)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return errors.Mark(errors.Wrapf(err, "checking %s", dir), errors.ErrIO)
	}
	if err := paths.EnsureDir(i.root, 0o755); err != nil {
		return errors.Mark(errors.Wrapf(err, "creating %s", i.root), errors.ErrIO)
	}
	return nil
}

// Uninstall removes name's install directory if present and its registry
// entry, then resyncs. A missing directory is not an error.
func (i *Installer) Uninstall(ctx context.Context, name string) (*UninstallResult, error) {
	if err := validator.ValidateName(name); err != nil {
		return nil, stepErr(StepResolve, errors.Wrapf(ErrInvalidSource, "%q: %v", name, err), "")
	}

	dir := i.Dir(name)
	res := &UninstallResult{Name: name, Dir: dir}

	if _, err := os.Lstat(dir); err == nil {
		if err := os.RemoveAll(dir); err != nil {
			return nil, stepErr(StepRemove, errors.Mark(errors.Wrapf(err, "removing %s", dir), errors.ErrIO), "")
		}
		res.DirRemoved = true
		i.logger.Info("removed installation", "server", name, "dir", dir)
	}

	removed, save, err := i.store.Delete(ctx, name)
	res.EntryRemoved = removed
	if err != nil {
		return nil, stepErr(StepRegister, err, "")
	}
	res.Save = save
	return res, nil
}
