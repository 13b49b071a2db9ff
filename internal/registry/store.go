package registry

import (
	"context"
	"log/slog"
	"maps"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/thoreinstein/clawmgr/internal/errors"
	"github.com/thoreinstein/clawmgr/internal/logging"
	"github.com/thoreinstein/clawmgr/internal/paths"
	"github.com/thoreinstein/clawmgr/internal/reconcile"
	"github.com/thoreinstein/clawmgr/pkg/fileutil"
)

// FilePerm is the mode of the registry file. It may hold secrets in env.
const FilePerm = 0o600

const (
	defaultLockTimeout = 10 * time.Second
	lockRetryDelay     = 50 * time.Millisecond
)

// ErrLockTimeout indicates another clawmgr process held the registry lock
// for too long.
var ErrLockTimeout = errors.New("timed out waiting for registry lock")

// SaveResult is the outcome of a durable registry write.
type SaveResult struct {
	// Report describes the reconcile run. Nil when no syncer is configured.
	Report *reconcile.Report

	// SyncErr is set when the registry was saved but the companion store
	// could not be brought in line. It is marked reconcile.ErrSyncDegraded.
	SyncErr error
}

// Degraded reports whether the save succeeded with a failed reconcile.
func (r *SaveResult) Degraded() bool {
	return r != nil && r.SyncErr != nil
}

// Store reads and writes the registry file.
type Store struct {
	path        string
	syncer      *reconcile.Syncer
	logger      *slog.Logger
	lockPath    string
	lockTimeout time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithSyncer sets the reconciler run after every save.
func WithSyncer(s *reconcile.Syncer) Option {
	return func(st *Store) {
		st.syncer = s
	}
}

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(st *Store) {
		if l != nil {
			st.logger = l
		}
	}
}

// WithLockTimeout bounds how long Update waits for the lock when the
// context carries no deadline.
func WithLockTimeout(d time.Duration) Option {
	return func(st *Store) {
		if d > 0 {
			st.lockTimeout = d
		}
	}
}

// NewStore returns a Store for the registry file at path.
func NewStore(path string, opts ...Option) *Store {
	s := &Store{
		path:        path,
		logger:      logging.NewDiscard(),
		lockPath:    path + ".lock",
		lockTimeout: defaultLockTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the registry file location.
func (s *Store) Path() string {
	return s.path
}

// Syncer returns the configured reconciler, or nil.
func (s *Store) Syncer() *reconcile.Syncer {
	return s.syncer
}

// Load reads the registry. A missing file is an empty registry. A file
// that does not parse is an error marked errors.ErrParse and is never
// reset.
func (s *Store) Load() (Registry, error) {
	data, exists, err := fileutil.ReadFileIfExists(s.path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return Registry{}, nil
	}
	reg, err := Decode(data)
	if err != nil {
		return nil, errors.WithHintf(errors.Wrapf(err, "loading %s", s.path),
			"fix the JSON in %s by hand; clawmgr will not overwrite it", s.path)
	}
	s.logger.Debug("loaded registry", "path", s.path, "servers", len(reg))
	return reg, nil
}

// Save writes reg atomically and then reconciles. The returned error is
// only for the registry write; a reconcile failure is logged and carried
// in SaveResult.SyncErr.
func (s *Store) Save(ctx context.Context, reg Registry) (*SaveResult, error) {
	if err := s.write(reg); err != nil {
		return nil, err
	}
	return s.reconcile(ctx, reg), nil
}

func (s *Store) write(reg Registry) error {
	data, err := reg.Encode()
	if err != nil {
		return errors.Wrap(err, "encoding registry")
	}
	if err := paths.EnsureDir(filepath.Dir(s.path), 0o700); err != nil {
		return errors.Mark(errors.Wrap(err, "creating registry directory"), errors.ErrIO)
	}
	if err := fileutil.AtomicWriteFile(s.path, data, FilePerm); err != nil {
		return errors.Wrapf(err, "saving %s", s.path)
	}
	s.logger.Debug("saved registry", "path", s.path, "servers", len(reg))
	return nil
}

// Sync reconciles the companion store against the registry on disk
// without changing the registry.
func (s *Store) Sync(ctx context.Context) (*SaveResult, error) {
	reg, err := s.Load()
	if err != nil {
		return nil, err
	}
	return s.reconcile(ctx, reg), nil
}

func (s *Store) reconcile(ctx context.Context, reg Registry) *SaveResult {
	result := &SaveResult{}
	if s.syncer == nil {
		return result
	}
	report, err := s.syncer.Sync(ctx, reg.Servers())
	result.Report = report
	if err != nil {
		result.SyncErr = err
		s.logger.Warn("companion store sync degraded",
			"path", s.syncer.Path(),
			"error", err,
		)
	}
	return result
}

// Update runs fn against the current registry under the registry lock and
// saves the result. If fn returns an error nothing is written.
func (s *Store) Update(ctx context.Context, fn func(Registry) error) (*SaveResult, error) {
	unlock, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	reg, err := s.Load()
	if err != nil {
		return nil, err
	}
	if err := fn(reg); err != nil {
		return nil, err
	}
	return s.Save(ctx, reg)
}

// Delete removes name from the registry under the lock and reports whether
// it was present. The companion store is reconciled with the removed entry
// treated as disabled, so its projection is dropped too; a plain Update
// that deletes the key would leave the projection behind as a name the
// reconciler no longer manages.
func (s *Store) Delete(ctx context.Context, name string) (bool, *SaveResult, error) {
	unlock, err := s.acquire(ctx)
	if err != nil {
		return false, nil, err
	}
	defer unlock()

	reg, err := s.Load()
	if err != nil {
		return false, nil, err
	}
	srv, ok := reg[name]
	if !ok {
		return false, s.reconcile(ctx, reg), nil
	}

	delete(reg, name)
	if err := s.write(reg); err != nil {
		return false, nil, err
	}

	view := maps.Clone(reg)
	retired := srv.Clone()
	retired.Enabled = false
	view[name] = retired
	return true, s.reconcile(ctx, view), nil
}

func (s *Store) acquire(ctx context.Context) (func(), error) {
	if err := paths.EnsureDir(filepath.Dir(s.path), 0o700); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "creating registry directory"), errors.ErrIO)
	}

	lockCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, s.lockTimeout)
		defer cancel()
	}

	// A fresh handle per acquisition so goroutines sharing a Store exclude
	// each other too.
	lock := flock.New(s.lockPath)
	locked, err := lock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil || !locked {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.WithHintf(ErrLockTimeout,
			"another clawmgr process may be running; if not, delete %s", s.lockPath)
	}
	s.logger.Log(ctx, logging.LevelTrace, "acquired registry lock", "path", s.lockPath)

	return func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Warn("releasing registry lock", "error", err)
		}
	}, nil
}
