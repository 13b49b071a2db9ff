// Package fileutil provides file system utilities including atomic write operations.
package fileutil

import (
	"bytes"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/clawmgr/internal/errors"
)

// AtomicWriteFile writes data to a file atomically using a temp file + rename pattern.
// Readers observe either the previous contents or the new contents, never a
// partial file.
//
// The caller is responsible for ensuring the parent directory exists.
// Permissions are applied to the final file via the perm parameter.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	// Same directory so the rename stays on one filesystem.
	tmp, err := os.CreateTemp(dir, ".clawmgr-*.tmp")
	if err != nil {
		return errors.Mark(errors.Wrap(err, "creating temp file"), errors.ErrIO)
	}

	tmpName := tmp.Name()
	renamed := false
	defer func() {
		if !renamed {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Mark(errors.Wrap(err, "writing temp file"), errors.ErrIO)
	}

	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return errors.Mark(errors.Wrap(err, "setting file permissions"), errors.ErrIO)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Mark(errors.Wrap(err, "syncing temp file"), errors.ErrIO)
	}

	if err := tmp.Close(); err != nil {
		return errors.Mark(errors.Wrap(err, "closing temp file"), errors.ErrIO)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return errors.Mark(errors.Wrap(err, "renaming temp file"), errors.ErrIO)
	}
	renamed = true

	return nil
}

// WriteIfChanged atomically replaces path with data unless the file already
// holds exactly those bytes. It reports whether a write happened.
func WriteIfChanged(path string, data []byte, perm os.FileMode) (bool, error) {
	current, err := os.ReadFile(path)
	if err == nil && bytes.Equal(current, data) {
		return false, nil
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, errors.Mark(errors.Wrap(err, "reading current contents"), errors.ErrIO)
	}
	if err := AtomicWriteFile(path, data, perm); err != nil {
		return false, err
	}
	return true, nil
}

// ExistingPerm returns the permission bits of path, or fallback if the file
// does not exist. Rewrites of files clawmgr does not own keep their mode.
func ExistingPerm(path string, fallback os.FileMode) os.FileMode {
	info, err := os.Stat(path)
	if err != nil {
		return fallback
	}
	return info.Mode().Perm()
}

// MarshalJSON renders v the way every JSON store in clawmgr is written:
// 2-space indentation, no HTML escaping, trailing newline.
func MarshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, errors.Wrap(err, "marshaling JSON")
	}
	return buf.Bytes(), nil
}

// AtomicWriteJSONWithPerm writes v as indented JSON to path atomically with specified permissions.
//
// The caller is responsible for ensuring the parent directory exists.
func AtomicWriteJSONWithPerm(path string, v any, perm os.FileMode) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return err
	}
	return AtomicWriteFile(path, data, perm)
}

// AtomicWriteJSON writes v as indented JSON to path atomically with 0644
// permissions.
func AtomicWriteJSON(path string, v any) error {
	return AtomicWriteJSONWithPerm(path, v, 0o644)
}

// AtomicWriteYAMLWithPerm writes v as YAML to path atomically with specified permissions.
//
// The caller is responsible for ensuring the parent directory exists.
func AtomicWriteYAMLWithPerm(path string, v any, perm os.FileMode) (err error) {
	// yaml.Marshal panics on unmarshalable types
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("marshaling YAML: %v", r)
		}
	}()

	data, err := yaml.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "marshaling YAML")
	}
	if len(data) > 0 && data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}

	return AtomicWriteFile(path, data, perm)
}

// AtomicWriteYAML writes v as YAML to path atomically with 0644 permissions.
func AtomicWriteYAML(path string, v any) error {
	return AtomicWriteYAMLWithPerm(path, v, 0o644)
}
