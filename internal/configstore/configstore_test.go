package configstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/clawmgr/internal/errors"
	"github.com/thoreinstein/clawmgr/internal/logging"
)

func newStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".openclaw", "openclaw.json")
	return New(path, append([]Option{WithLogger(logging.ForTest(t))}, opts...)...)
}

func TestStore_LoadMissing(t *testing.T) {
	doc, err := newStore(t).Load()
	require.NoError(t, err)
	assert.Empty(t, doc)
}

func TestStore_LoadBOM(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o700))
	require.NoError(t, os.WriteFile(s.Path(), []byte("\xEF\xBB\xBF{\"gateway\":{\"port\":8080}}"), 0o600))

	doc, err := s.Load()
	require.NoError(t, err)
	v, ok := doc.Get("gateway.port")
	require.True(t, ok)
	assert.InDelta(t, 8080, v, 0)
}

func TestStore_LoadMalformed(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o700))
	require.NoError(t, os.WriteFile(s.Path(), []byte("{nope"), 0o600))

	_, err := s.Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrParse))
}

func TestStore_SaveRoundTrip(t *testing.T) {
	s := newStore(t)
	doc := Document{"agents": map[string]any{"default": "main"}}
	require.NoError(t, s.Save(doc))

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestStore_SaveKeepsMode(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o700))
	require.NoError(t, os.WriteFile(s.Path(), []byte(`{}`), 0o640))

	require.NoError(t, s.Save(Document{"a": true}))

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
}

func TestStore_BeforeWrite(t *testing.T) {
	var calls []string
	s := newStore(t, WithBeforeWrite(func(path string) error {
		calls = append(calls, path)
		return nil
	}))

	require.NoError(t, s.Save(Document{"a": 1.0}))
	assert.Empty(t, calls, "no hook for a file that does not exist yet")

	require.NoError(t, s.Save(Document{"a": 2.0}))
	assert.Equal(t, []string{s.Path()}, calls)
}

func TestStore_BeforeWriteFailureAborts(t *testing.T) {
	hookErr := errors.New("backup failed")
	s := newStore(t)
	require.NoError(t, s.Save(Document{"a": 1.0}))

	s = New(s.Path(), WithBeforeWrite(func(string) error { return hookErr }))
	err := s.Save(Document{"a": 2.0})
	require.ErrorIs(t, err, hookErr)

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, Document{"a": 1.0}, got)
}

func TestDocument_GetSetUnset(t *testing.T) {
	doc := Document{}

	require.NoError(t, doc.Set("gateway.auth.mode", "token"))
	v, ok := doc.Get("gateway.auth.mode")
	require.True(t, ok)
	assert.Equal(t, "token", v)

	_, ok = doc.Get("gateway.missing")
	assert.False(t, ok)

	require.NoError(t, doc.Set("gateway.port", 9000.0))
	err := doc.Set("gateway.port.inner", 1)
	require.ErrorIs(t, err, ErrNotObject)

	assert.True(t, doc.Unset("gateway.auth.mode"))
	assert.False(t, doc.Unset("gateway.auth.mode"))
	assert.False(t, doc.Unset("nothing.here"))

	gw, _ := doc.Get("gateway")
	assert.Equal(t, map[string]any{"auth": map[string]any{}, "port": 9000.0}, gw)
}

func TestDocument_InvalidPaths(t *testing.T) {
	doc := Document{}
	for _, p := range []string{"", ".", "a..b", "a."} {
		t.Run(p, func(t *testing.T) {
			require.Error(t, doc.Set(p, 1))
			_, ok := doc.Get(p)
			assert.False(t, ok)
		})
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		raw  string
		want any
	}{
		{"true", true},
		{"42", 42.0},
		{`"quoted"`, "quoted"},
		{`{"a":1}`, map[string]any{"a": 1.0}},
		{"plain text", "plain text"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseValue(tt.raw))
		})
	}
}

func TestQuery(t *testing.T) {
	doc := Document{
		"agents": map[string]any{
			"list": []any{
				map[string]any{"id": "main"},
				map[string]any{"id": "ops"},
			},
		},
	}

	tests := []struct {
		name    string
		expr    string
		want    []any
		wantErr error
	}{
		{name: "path", expr: ".agents.list[0].id", want: []any{"main"}},
		{name: "stream", expr: ".agents.list[].id", want: []any{"main", "ops"}},
		{name: "keys", expr: "keys", want: []any{[]any{"agents"}}},
		{name: "empty", expr: "empty", want: nil},
		{name: "syntax", expr: ".[", wantErr: ErrInvalidQuery},
		{name: "undefined function", expr: "nosuchfn", wantErr: ErrInvalidQuery},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Query(context.Background(), doc, tt.expr)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuery_RuntimeError(t *testing.T) {
	_, err := Query(context.Background(), Document{"a": "x"}, ".a | tonumber")
	require.Error(t, err)
}
