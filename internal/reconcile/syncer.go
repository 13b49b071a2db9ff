package reconcile

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"

	"github.com/thoreinstein/clawmgr/internal/errors"
	"github.com/thoreinstein/clawmgr/internal/logging"
	"github.com/thoreinstein/clawmgr/internal/mcp"
	"github.com/thoreinstein/clawmgr/internal/paths"
	"github.com/thoreinstein/clawmgr/pkg/fileutil"
)

// BeforeWriteFunc runs once before the Syncer replaces an existing
// companion file. Returning an error aborts the write.
type BeforeWriteFunc func(path string) error

// Report describes one sync run.
type Report struct {
	Path    string `json:"path"`
	Plan    *Plan  `json:"plan"`
	Written bool   `json:"written"`
}

// Syncer applies the registry to the companion file on disk.
type Syncer struct {
	path        string
	beforeWrite BeforeWriteFunc
	logger      *slog.Logger
}

// SyncerOption configures a Syncer.
type SyncerOption func(*Syncer)

// WithBeforeWrite installs a hook run before an existing file is replaced.
func WithBeforeWrite(fn BeforeWriteFunc) SyncerOption {
	return func(s *Syncer) {
		s.beforeWrite = fn
	}
}

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) SyncerOption {
	return func(s *Syncer) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSyncer returns a Syncer for the companion file at path.
func NewSyncer(path string, opts ...SyncerOption) *Syncer {
	s := &Syncer{
		path:   path,
		logger: logging.NewDiscard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the companion file location.
func (s *Syncer) Path() string {
	return s.path
}

// Inspect reads the companion file and returns the Plan a Sync would
// carry out, without writing.
func (s *Syncer) Inspect(servers map[string]*mcp.Server) (*Plan, error) {
	raw, _, err := fileutil.ReadFileIfExists(s.path)
	if err != nil {
		return nil, errors.Mark(err, ErrSyncDegraded)
	}
	plan, err := Diff(servers, raw)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "reading %s", s.path), ErrSyncDegraded)
	}
	return plan, nil
}

// Sync brings the companion file in line with servers. A file already in
// the desired state is not rewritten. Every returned error is marked
// ErrSyncDegraded.
func (s *Syncer) Sync(ctx context.Context, servers map[string]*mcp.Server) (*Report, error) {
	report, err := s.sync(ctx, servers)
	if err != nil {
		return report, errors.Mark(err, ErrSyncDegraded)
	}
	return report, nil
}

func (s *Syncer) sync(ctx context.Context, servers map[string]*mcp.Server) (*Report, error) {
	report := &Report{Path: s.path}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	raw, exists, err := fileutil.ReadFileIfExists(s.path)
	if err != nil {
		return report, err
	}

	plan, err := Diff(servers, raw)
	if err != nil {
		return report, errors.WithHintf(errors.Wrapf(err, "reading %s", s.path),
			"fix or remove %s by hand; clawmgr will not overwrite it", s.path)
	}
	report.Plan = plan

	out, err := Apply(servers, raw)
	if err != nil {
		return report, err
	}
	if exists && bytes.Equal(raw, out) {
		s.logger.Debug("companion store up to date", "path", s.path)
		return report, nil
	}

	if err := paths.EnsureDir(filepath.Dir(s.path), 0o755); err != nil {
		return report, errors.Mark(errors.Wrap(err, "creating companion store directory"), errors.ErrIO)
	}
	if exists && s.beforeWrite != nil {
		if err := s.beforeWrite(s.path); err != nil {
			return report, err
		}
	}

	written, err := fileutil.WriteIfChanged(s.path, out, fileutil.ExistingPerm(s.path, 0o644))
	if err != nil {
		return report, err
	}
	report.Written = written

	s.logger.Info("synced companion store",
		"path", s.path,
		"added", len(plan.Added),
		"updated", len(plan.Updated),
		"removed", len(plan.Removed),
	)
	return report, nil
}
