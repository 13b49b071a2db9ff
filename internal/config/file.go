package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/clawmgr/internal/errors"
	"github.com/thoreinstein/clawmgr/internal/paths"
	"github.com/thoreinstein/clawmgr/pkg/fileutil"
)

// ErrUnknownKey indicates a key that is not part of the schema.
var ErrUnknownKey = errors.New("unknown configuration key")

// ErrExists indicates config init found an existing file.
var ErrExists = errors.New("configuration file already exists")

// WriteDefault writes the default configuration to path. An existing file is
// only replaced when force is set.
func WriteDefault(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.WithHint(errors.Wrap(ErrExists, path), "Use --force to overwrite it")
	}

	if err := paths.EnsureDir(filepath.Dir(path), 0o755); err != nil {
		return errors.Mark(errors.Wrap(err, "creating config directory"), errors.ErrIO)
	}
	return fileutil.AtomicWriteYAMLWithPerm(path, Default(), 0o644)
}

// SetValue updates a single key in the YAML file at path, creating the file
// if needed. The raw string is coerced to the key's type so that the file
// stays loadable: integers for version and retention, durations for probe
// timings, and a comma-separated list for extra_paths.
func SetValue(path, key, raw string) (any, error) {
	if !IsKnownKey(key) {
		return nil, errors.WithHintf(errors.Wrap(ErrUnknownKey, key), "Known keys: %s", strings.Join(Keys(), ", "))
	}

	value, err := coerce(key, raw)
	if err != nil {
		return nil, err
	}

	doc := map[string]any{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, errors.Wrapf(err, "parsing %s", path)
		}
		if doc == nil {
			doc = map[string]any{}
		}
	case errors.Is(err, fs.ErrNotExist):
		if err := paths.EnsureDir(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Mark(errors.Wrap(err, "creating config directory"), errors.ErrIO)
		}
	default:
		return nil, errors.Mark(errors.Wrap(err, "reading config file"), errors.ErrIO)
	}

	setNested(doc, strings.Split(key, "."), value)

	if err := fileutil.AtomicWriteYAMLWithPerm(path, doc, 0o644); err != nil {
		return nil, errors.Wrap(err, "writing config file")
	}
	return value, nil
}

func coerce(key, raw string) (any, error) {
	switch key {
	case KeyVersion, KeyBackupRetention:
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, errors.Wrapf(ErrOutOfRange, "%s must be an integer, got %q", key, raw)
		}
		return n, nil
	case KeyProbeGracePeriod, KeyProbeHTTPTimeout:
		d, err := time.ParseDuration(strings.TrimSpace(raw))
		if err != nil || d <= 0 {
			return nil, errors.WithHint(
				errors.Wrapf(ErrOutOfRange, "%s must be a positive duration, got %q", key, raw),
				"Use Go duration syntax, e.g. 3s or 1500ms")
		}
		return d.String(), nil
	case KeyExtraPaths:
		var out []string
		for p := range strings.SplitSeq(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	default:
		if strings.TrimSpace(raw) == "" {
			return nil, errors.Wrap(ErrEmptyValue, key)
		}
		return raw, nil
	}
}

func setNested(doc map[string]any, keys []string, value any) {
	for _, k := range keys[:len(keys)-1] {
		child, ok := doc[k].(map[string]any)
		if !ok {
			child = map[string]any{}
			doc[k] = child
		}
		doc = child
	}
	doc[keys[len(keys)-1]] = value
}
