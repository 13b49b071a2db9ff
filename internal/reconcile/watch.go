package reconcile

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/thoreinstein/clawmgr/internal/errors"
	"github.com/thoreinstein/clawmgr/internal/logging"
)

// DefaultDebounceDelay is how long the Watcher waits for a burst of events
// on the watched file to settle.
const DefaultDebounceDelay = 300 * time.Millisecond

// WatcherConfig configures a Watcher.
type WatcherConfig struct {
	// Path is the file to watch. Its parent directory must exist.
	Path string

	// OnChange runs after the file settles. Errors are logged and the
	// watcher keeps going.
	OnChange func(ctx context.Context) error

	// Logger is optional.
	Logger *slog.Logger

	// DebounceDelay defaults to DefaultDebounceDelay.
	DebounceDelay time.Duration
}

// Watcher re-runs OnChange whenever Path is written, created or replaced.
// The parent directory is watched because atomic writers replace the file
// by rename.
type Watcher struct {
	path     string
	onChange func(ctx context.Context) error
	logger   *slog.Logger
	debounce time.Duration
}

// NewWatcher validates cfg and returns a Watcher.
func NewWatcher(cfg WatcherConfig) (*Watcher, error) {
	if cfg.Path == "" {
		return nil, errors.New("watch path is required")
	}
	if cfg.OnChange == nil {
		return nil, errors.New("change handler is required")
	}
	abs, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %s", cfg.Path)
	}

	w := &Watcher{
		path:     abs,
		onChange: cfg.OnChange,
		logger:   cfg.Logger,
		debounce: cfg.DebounceDelay,
	}
	if w.logger == nil {
		w.logger = logging.NewDiscard()
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounceDelay
	}
	return w, nil
}

// Run blocks until ctx is canceled. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating file watcher")
	}
	defer fsw.Close()

	dir := filepath.Dir(w.path)
	if err := fsw.Add(dir); err != nil {
		return errors.Mark(errors.Wrapf(err, "watching %s", dir), errors.ErrIO)
	}
	w.logger.Debug("watching file", "path", w.path)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Log(ctx, logging.LevelTrace, "file event", "path", event.Name, "op", event.Op.String())
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)

		case <-timer.C:
			if err := w.onChange(ctx); err != nil {
				w.logger.Warn("change handler failed", "path", w.path, "error", err)
			}
		}
	}
}
