package paths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"

	"github.com/thoreinstein/clawmgr/internal/errors"
)

// AppName names clawmgr's own directories under the XDG roots.
const AppName = "clawmgr"

// Directory and file names owned by the platform and its companion tool.
// All are relative to the user's home directory.
const (
	platformDirName    = ".openclaw"
	registryFileName   = "mcps.json"
	installDirName     = "mcps"
	platformConfigName = "openclaw.json"

	companionDirName  = ".mcporter"
	companionFileName = "mcporter.json"
)

// Sentinel errors for path resolution.
var (
	// ErrHomeDirNotFound indicates the user's home directory could not be determined.
	ErrHomeDirNotFound = errors.New("home directory not found")

	// ErrInvalidPath indicates the provided path is malformed or invalid.
	ErrInvalidPath = errors.New("invalid path")
)

// DefaultDirPerm is the default permission for newly created directories (private).
const DefaultDirPerm = 0o700

// EnsureDir creates the directory and any necessary parents with specified permissions.
// If perm is 0, DefaultDirPerm (0700) is used.
// Existing directories are left alone, including their permissions.
func EnsureDir(path string, perm os.FileMode) error {
	if perm == 0 {
		perm = DefaultDirPerm
	}
	return os.MkdirAll(path, perm)
}

// Home returns the user's home directory, or "" when it cannot be
// determined. Use ResolveHome when the caller needs the error.
func Home() string {
	h, _ := ResolveHome()
	return h
}

// ResolveHome returns the user's home directory.
// Returns ErrHomeDirNotFound if the directory cannot be determined.
func ResolveHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", errors.Wrap(ErrHomeDirNotFound, "resolving home")
	}
	return home, nil
}

// ExpandHome replaces a leading "~" or "~/" in path with the home directory.
// Other paths are returned cleaned but otherwise unchanged.
func ExpandHome(path string) (string, error) {
	if path == "" {
		return "", errors.Wrap(ErrInvalidPath, "empty path")
	}
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return filepath.Clean(path), nil
	}
	home, err := ResolveHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[1:]), nil
}

// ConfigHome returns the XDG config home directory.
// On Linux: ~/.config
// On macOS: ~/Library/Application Support
// On Windows: %LOCALAPPDATA%
func ConfigHome() string {
	return xdg.ConfigHome
}

// Reload re-reads the XDG environment variables. The xdg package resolves
// them once at startup, so tests that point XDG_* at a temp dir call this.
func Reload() {
	xdg.Reload()
}

// DataHome returns the XDG data home directory.
func DataHome() string {
	return xdg.DataHome
}

// CacheHome returns the XDG cache home directory.
func CacheHome() string {
	return xdg.CacheHome
}

// AppConfigDir returns <ConfigHome>/clawmgr, home of config.yaml.
func AppConfigDir() string {
	return filepath.Join(ConfigHome(), AppName)
}

// AppConfigFile returns the default location of clawmgr's config.yaml.
func AppConfigFile() string {
	return filepath.Join(AppConfigDir(), "config.yaml")
}

// BackupDir returns <DataHome>/clawmgr/backups.
func BackupDir() string {
	return filepath.Join(DataHome(), AppName, "backups")
}

// PlatformDir returns ~/.openclaw, or "" if home is unknown.
func PlatformDir() string {
	return homeJoin(platformDirName)
}

// RegistryPath returns the private MCP registry, ~/.openclaw/mcps.json.
func RegistryPath() string {
	return homeJoin(platformDirName, registryFileName)
}

// InstallRoot returns the directory git-installed servers are cloned into,
// ~/.openclaw/mcps.
func InstallRoot() string {
	return homeJoin(platformDirName, installDirName)
}

// PlatformConfigPath returns the platform's main document,
// ~/.openclaw/openclaw.json.
func PlatformConfigPath() string {
	return homeJoin(platformDirName, platformConfigName)
}

// ExternalStorePath returns the companion tool's server list,
// ~/.mcporter/mcporter.json. clawmgr does not own this file.
func ExternalStorePath() string {
	return homeJoin(companionDirName, companionFileName)
}

func homeJoin(elem ...string) string {
	home := Home()
	if home == "" {
		return ""
	}
	return filepath.Join(append([]string{home}, elem...)...)
}
