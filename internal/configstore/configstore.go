// Package configstore reads and writes the platform's main JSON document.
//
// The document is treated as an opaque object: clawmgr only edits the
// paths it is asked to and preserves everything else.
package configstore

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/thoreinstein/clawmgr/internal/errors"
	"github.com/thoreinstein/clawmgr/internal/logging"
	"github.com/thoreinstein/clawmgr/internal/paths"
	"github.com/thoreinstein/clawmgr/pkg/fileutil"
)

// ErrNotObject indicates a dotted path runs through a value that is not an
// object.
var ErrNotObject = errors.New("not an object")

// Document is the decoded platform document.
type Document map[string]any

// BeforeWriteFunc runs before an existing document is replaced.
type BeforeWriteFunc func(path string) error

// Store loads and saves the document at one path.
type Store struct {
	path        string
	beforeWrite BeforeWriteFunc
	logger      *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithBeforeWrite installs a hook run before an existing file is replaced.
func WithBeforeWrite(fn BeforeWriteFunc) Option {
	return func(s *Store) {
		s.beforeWrite = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns a Store for path.
func New(path string, opts ...Option) *Store {
	s := &Store{path: path, logger: logging.NewDiscard()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the document location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the document. A missing file is an empty document. A leading
// UTF-8 byte order mark is ignored.
func (s *Store) Load() (Document, error) {
	data, exists, err := fileutil.ReadFileIfExists(s.path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return Document{}, nil
	}
	doc, err := Decode(data)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", s.path)
	}
	return doc, nil
}

// Decode parses document bytes.
func Decode(data []byte) (Document, error) {
	data = fileutil.TrimDocument(data)
	if len(data) == 0 {
		return Document{}, nil
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decoding document"), errors.ErrParse)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

// Save writes doc atomically, keeping the existing file mode. An unchanged
// document is not rewritten.
func (s *Store) Save(doc Document) error {
	data, err := fileutil.MarshalJSON(map[string]any(doc))
	if err != nil {
		return err
	}
	if err := paths.EnsureDir(filepath.Dir(s.path), 0o700); err != nil {
		return errors.Mark(errors.Wrap(err, "creating document directory"), errors.ErrIO)
	}

	_, exists, err := fileutil.ReadFileIfExists(s.path)
	if err != nil {
		return err
	}
	if exists && s.beforeWrite != nil {
		if err := s.beforeWrite(s.path); err != nil {
			return err
		}
	}

	written, err := fileutil.WriteIfChanged(s.path, data, fileutil.ExistingPerm(s.path, 0o600))
	if err != nil {
		return errors.Wrapf(err, "saving %s", s.path)
	}
	s.logger.Debug("saved platform document", "path", s.path, "written", written)
	return nil
}

func splitPath(path string) ([]string, error) {
	path = strings.TrimPrefix(path, ".")
	if path == "" {
		return nil, errors.New("path is empty")
	}
	keys := strings.Split(path, ".")
	for _, k := range keys {
		if k == "" {
			return nil, errors.Newf("path %q has an empty segment", path)
		}
	}
	return keys, nil
}

// Get returns the value at a dotted path.
func (d Document) Get(path string) (any, bool) {
	keys, err := splitPath(path)
	if err != nil {
		return nil, false
	}
	var cur any = map[string]any(d)
	for _, k := range keys {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = obj[k]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// Set stores value at a dotted path, creating intermediate objects. It
// fails with ErrNotObject if an existing intermediate value is not an
// object.
func (d Document) Set(path string, value any) error {
	keys, err := splitPath(path)
	if err != nil {
		return err
	}
	obj := map[string]any(d)
	for i, k := range keys[:len(keys)-1] {
		next, ok := obj[k]
		if !ok || next == nil {
			child := map[string]any{}
			obj[k] = child
			obj = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return errors.Wrapf(ErrNotObject, "%s", strings.Join(keys[:i+1], "."))
		}
		obj = child
	}
	obj[keys[len(keys)-1]] = value
	return nil
}

// Unset removes the value at a dotted path and reports whether it existed.
func (d Document) Unset(path string) bool {
	keys, err := splitPath(path)
	if err != nil {
		return false
	}
	obj := map[string]any(d)
	for _, k := range keys[:len(keys)-1] {
		child, ok := obj[k].(map[string]any)
		if !ok {
			return false
		}
		obj = child
	}
	last := keys[len(keys)-1]
	_, ok := obj[last]
	delete(obj, last)
	return ok
}

// ParseValue interprets raw as JSON when it parses, else as a string.
func ParseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}
