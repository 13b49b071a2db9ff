package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thoreinstein/clawmgr/internal/errors"
	"github.com/thoreinstein/clawmgr/internal/paths"
	"github.com/thoreinstein/clawmgr/pkg/fileutil"
)

// Version is stamped into manifests; the CLI sets it from the build version.
var Version = "dev"

// Manager handles snapshot creation, restoration and pruning.
type Manager struct {
	rootDir        string
	retentionCount int

	mu   sync.Mutex
	once map[string]*sync.Once
}

// Option configures a Manager.
type Option func(*Manager)

// WithBackupDir sets the root backup directory.
func WithBackupDir(dir string) Option {
	return func(m *Manager) {
		m.rootDir = dir
	}
}

// WithRetentionCount sets how many snapshots are kept per target.
// Zero disables pruning after EnsureBackedUp.
func WithRetentionCount(n int) Option {
	return func(m *Manager) {
		if n >= 0 {
			m.retentionCount = n
		}
	}
}

// NewManager creates a new backup Manager with the given options.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		rootDir:        paths.BackupDir(),
		retentionCount: DefaultRetentionCount,
		once:           make(map[string]*sync.Once),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Dir returns the root backup directory.
func (m *Manager) Dir() string {
	return m.rootDir
}

// Backup snapshots the given files for target. Paths that do not exist are
// skipped; if none exist ErrNothingToBackUp is returned.
func (m *Manager) Backup(target string, files []string) (*Manifest, error) {
	if target == "" {
		return nil, errors.New("target is required")
	}
	if len(files) == 0 {
		return nil, errors.New("at least one path is required")
	}

	// Timestamp for ordering, random suffix so two snapshots in the same
	// second do not collide.
	backupID := time.Now().UTC().Format("20060102T150405") + "-" + uuid.NewString()[:8]
	backupPath := m.backupPath(target, backupID)

	if err := paths.EnsureDir(backupPath, 0o700); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "creating backup directory"), errors.ErrIO)
	}

	var copied []File
	for _, p := range files {
		info, err := os.Stat(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			os.RemoveAll(backupPath)
			return nil, errors.Wrapf(err, "stat %s", p)
		}
		if info.IsDir() {
			os.RemoveAll(backupPath)
			return nil, errors.Newf("%s is a directory", p)
		}

		bf, err := m.backupFile(p, backupPath)
		if err != nil {
			os.RemoveAll(backupPath)
			return nil, errors.Wrapf(err, "backing up %s", p)
		}
		copied = append(copied, *bf)
	}

	if len(copied) == 0 {
		os.RemoveAll(backupPath)
		return nil, ErrNothingToBackUp
	}

	manifest := &Manifest{
		Version:     ManifestVersion,
		CreatedAt:   time.Now().UTC(),
		Target:      target,
		Files:       copied,
		ToolVersion: Version,
		ID:          backupID,
	}

	if err := fileutil.AtomicWriteJSONWithPerm(filepath.Join(backupPath, "manifest.json"), manifest, 0o600); err != nil {
		return nil, errors.Wrap(err, "writing manifest")
	}

	return manifest, nil
}

func (m *Manager) backupFile(src, backupPath string) (*File, error) {
	data, err := fileutil.ReadFileWithLimit(src)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(src)
	if err != nil {
		return nil, errors.Wrap(err, "stat source file")
	}

	relPath := generateRelPath(src)
	dst := filepath.Join(backupPath, relPath)
	if err := paths.EnsureDir(filepath.Dir(dst), 0o700); err != nil {
		return nil, errors.Wrap(err, "creating parent directory")
	}
	if err := fileutil.AtomicWriteFile(dst, data, info.Mode().Perm()); err != nil {
		return nil, err
	}

	return &File{
		OriginalPath: src,
		RelPath:      relPath,
		SHA256Hash:   hashBytes(data),
		Mode:         info.Mode().Perm(),
	}, nil
}

// EnsureBackedUp snapshots files for target at most once per Manager, then
// prunes old snapshots down to the retention count. Callers invoke it right
// before every rewrite; only the first call in a process does any work.
// A target whose files do not exist yet is not an error.
func (m *Manager) EnsureBackedUp(target string, files []string) error {
	if len(files) == 0 {
		return nil
	}

	m.mu.Lock()
	once, ok := m.once[target]
	if !ok {
		once = &sync.Once{}
		m.once[target] = once
	}
	m.mu.Unlock()

	var backupErr error
	once.Do(func() {
		_, backupErr = m.Backup(target, files)
		if errors.Is(backupErr, ErrNothingToBackUp) {
			backupErr = nil
			return
		}
		if backupErr != nil {
			// allow a retry on the next write
			m.mu.Lock()
			delete(m.once, target)
			m.mu.Unlock()
			return
		}
		if m.retentionCount > 0 {
			backupErr = m.Prune(target, m.retentionCount)
		}
	})

	if backupErr != nil {
		return errors.Wrapf(backupErr, "creating backup for %s", target)
	}
	return nil
}

// Restore writes every file of a snapshot back to its original location
// after verifying its hash.
func (m *Manager) Restore(target, backupID string) (*Manifest, error) {
	manifest, err := m.Get(target, backupID)
	if err != nil {
		return nil, err
	}

	backupPath := m.backupPath(target, manifest.ID)
	for _, bf := range manifest.Files {
		data, err := os.ReadFile(filepath.Join(backupPath, bf.RelPath))
		if err != nil {
			return nil, errors.Wrapf(err, "reading backup file %s", bf.RelPath)
		}
		if hashBytes(data) != bf.SHA256Hash {
			return nil, errors.Wrapf(ErrBackupCorrupted, "file %s hash mismatch", bf.RelPath)
		}

		if err := paths.EnsureDir(filepath.Dir(bf.OriginalPath), 0o755); err != nil {
			return nil, errors.Wrapf(err, "creating directory for %s", bf.OriginalPath)
		}
		if err := fileutil.AtomicWriteFile(bf.OriginalPath, data, bf.Mode.Perm()); err != nil {
			return nil, errors.Wrapf(err, "restoring %s", bf.OriginalPath)
		}
	}

	return manifest, nil
}

// List returns all snapshots for target, newest first.
func (m *Manager) List(target string) ([]Manifest, error) {
	if target == "" {
		return nil, errors.New("target is required")
	}

	entries, err := os.ReadDir(m.targetDir(target))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoBackupsFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading backup directory")
	}

	manifests := make([]Manifest, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		manifest, err := m.Get(target, entry.Name())
		if err != nil {
			continue
		}
		manifests = append(manifests, *manifest)
	}

	if len(manifests) == 0 {
		return nil, ErrNoBackupsFound
	}

	slices.SortFunc(manifests, func(a, b Manifest) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})

	return manifests, nil
}

// Prune removes all but the newest keep snapshots for target.
func (m *Manager) Prune(target string, keep int) error {
	if keep < 0 {
		return errors.New("keep must be non-negative")
	}

	manifests, err := m.List(target)
	if errors.Is(err, ErrNoBackupsFound) {
		return nil
	}
	if err != nil {
		return err
	}

	for i := keep; i < len(manifests); i++ {
		if err := os.RemoveAll(m.backupPath(target, manifests[i].ID)); err != nil {
			return errors.Wrapf(err, "removing backup %s", manifests[i].ID)
		}
	}
	return nil
}

// Get returns the manifest for one snapshot. backupID may be "latest".
func (m *Manager) Get(target, backupID string) (*Manifest, error) {
	if target == "" {
		return nil, errors.New("target is required")
	}
	if backupID == "" {
		return nil, errors.New("backup ID is required")
	}
	if backupID == "latest" {
		all, err := m.List(target)
		if err != nil {
			return nil, err
		}
		return &all[0], nil
	}
	if strings.ContainsAny(backupID, `/\`) || backupID == "." || backupID == ".." {
		return nil, errors.Newf("invalid backup ID %q", backupID)
	}

	data, err := os.ReadFile(filepath.Join(m.backupPath(target, backupID), "manifest.json"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrapf(ErrNoBackupsFound, "backup %s not found", backupID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading manifest")
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, errors.Wrap(err, "parsing manifest")
	}

	manifest.ID = backupID
	return &manifest, nil
}

func (m *Manager) backupPath(target, backupID string) string {
	return filepath.Join(m.targetDir(target), backupID)
}

func (m *Manager) targetDir(target string) string {
	return filepath.Join(m.rootDir, target)
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// generateRelPath maps an absolute path to a location inside the snapshot
// directory: leading separators and drive colons are dropped.
func generateRelPath(absPath string) string {
	clean := filepath.Clean(absPath)
	clean = strings.ReplaceAll(clean, ":", "")
	return strings.TrimLeft(clean, `/\`)
}
