package backup

import (
	"io/fs"
	"time"

	"github.com/thoreinstein/clawmgr/internal/errors"
)

// ManifestVersion is the manifest format version.
const ManifestVersion = 1

// DefaultRetentionCount is the number of snapshots kept per target.
const DefaultRetentionCount = 5

// Targets snapshotted by clawmgr before it rewrites a file.
const (
	// TargetExternalStore is the companion tool's server list.
	TargetExternalStore = "external-store"

	// TargetPlatformConfig is the platform's main document.
	TargetPlatformConfig = "platform-config"
)

// Sentinel errors for backup operations.
var (
	// ErrNoBackupsFound indicates no backups exist for the target.
	ErrNoBackupsFound = errors.New("no backups found")

	// ErrBackupCorrupted indicates a snapshot's SHA256 does not match its manifest.
	ErrBackupCorrupted = errors.New("backup corrupted")

	// ErrNothingToBackUp indicates none of the given paths exist yet.
	ErrNothingToBackUp = errors.New("no files to back up")
)

// Manifest describes one snapshot. It is stored as manifest.json in the
// snapshot directory.
type Manifest struct {
	Version     int       `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	Target      string    `json:"target"`
	Files       []File    `json:"files"`
	ToolVersion string    `json:"tool_version"`

	// ID is the snapshot directory name, populated when loading.
	ID string `json:"-"`
}

// File records one copied file.
type File struct {
	OriginalPath string      `json:"original_path"`
	RelPath      string      `json:"rel_path"`
	SHA256Hash   string      `json:"sha256_hash"`
	Mode         fs.FileMode `json:"mode"`
}
