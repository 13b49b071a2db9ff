package shell

import (
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/thoreinstein/clawmgr/internal/errors"
	"github.com/thoreinstein/clawmgr/internal/paths"
)

// ErrNotFound indicates a command did not resolve on the search path.
var ErrNotFound = errors.New("executable not found")

// CommonDirs returns the install locations of node, npm and friends that a
// GUI-launched or cron-launched process usually lacks on its PATH.
func CommonDirs() []string {
	home := paths.Home()
	var dirs []string
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			dirs = append(dirs, filepath.Join(appData, "npm"))
		}
		if pf := os.Getenv("ProgramFiles"); pf != "" {
			dirs = append(dirs, filepath.Join(pf, "nodejs"), filepath.Join(pf, "Git", "cmd"))
		}
	} else {
		dirs = append(dirs, "/opt/homebrew/bin", "/usr/local/bin", "/usr/bin", "/bin")
	}
	if home != "" {
		dirs = append(dirs,
			filepath.Join(home, ".local", "bin"),
			filepath.Join(home, ".npm-global", "bin"),
			filepath.Join(home, ".volta", "bin"),
			filepath.Join(home, ".bun", "bin"),
			filepath.Join(home, ".cargo", "bin"),
		)
	}
	return dirs
}

// ExtendedPath returns the process PATH followed by extra and then
// CommonDirs, without duplicates or empty entries.
func ExtendedPath(extra []string) string {
	candidates := filepath.SplitList(os.Getenv("PATH"))
	for _, dir := range extra {
		if expanded, err := paths.ExpandHome(dir); err == nil {
			dir = expanded
		}
		candidates = append(candidates, dir)
	}
	candidates = append(candidates, CommonDirs()...)

	seen := make(map[string]bool, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, dir := range candidates {
		if dir == "" || seen[dir] {
			continue
		}
		seen[dir] = true
		out = append(out, dir)
	}
	return strings.Join(out, string(os.PathListSeparator))
}

// LookPath resolves name against pathEnv rather than the process PATH.
// Names containing a separator are checked as given.
func LookPath(name, pathEnv string) (string, error) {
	if name == "" {
		return "", errors.Wrap(ErrNotFound, "empty command")
	}
	if strings.ContainsAny(name, `/\`) {
		if isExecutable(name) {
			return name, nil
		}
		return "", errors.Wrapf(ErrNotFound, "%s", name)
	}

	exts := []string{""}
	if runtime.GOOS == "windows" && filepath.Ext(name) == "" {
		exts = windowsExts()
	}
	for _, dir := range filepath.SplitList(pathEnv) {
		if dir == "" {
			continue
		}
		for _, ext := range exts {
			candidate := filepath.Join(dir, name+ext)
			if isExecutable(candidate) {
				return candidate, nil
			}
		}
	}
	return "", errors.Wrapf(ErrNotFound, "%s", name)
}

// Exists reports whether name resolves on pathEnv.
func Exists(name, pathEnv string) bool {
	_, err := LookPath(name, pathEnv)
	return err == nil
}

// Environ returns the process environment with PATH replaced by pathEnv
// and overlay entries appended, so they win on duplicate keys.
func Environ(pathEnv string, overlay map[string]string) []string {
	env := slices.DeleteFunc(os.Environ(), func(kv string) bool {
		key, _, _ := strings.Cut(kv, "=")
		return strings.EqualFold(key, "PATH")
	})
	env = append(env, "PATH="+pathEnv)
	keys := make([]string, 0, len(overlay))
	for k := range overlay {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		env = append(env, k+"="+overlay[k])
	}
	return env
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}

func windowsExts() []string {
	pathext := os.Getenv("PATHEXT")
	if pathext == "" {
		pathext = ".COM;.EXE;.BAT;.CMD"
	}
	exts := []string{""}
	for _, ext := range strings.Split(pathext, ";") {
		if ext != "" {
			exts = append(exts, strings.ToLower(ext))
		}
	}
	return exts
}
