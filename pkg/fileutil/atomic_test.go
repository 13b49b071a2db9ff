package fileutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/thoreinstein/clawmgr/internal/errors"
)

func TestAtomicWriteFile(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		perm os.FileMode
	}{
		{"successful write", []byte("hello world\n"), 0o644},
		{"empty data", []byte{}, 0o644},
		{"private file", []byte(`{"mcpServers":{}}`), 0o600},
		{"executable permissions", []byte("#!/bin/sh\necho hello\n"), 0o755},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "test-file")

			if err := AtomicWriteFile(path, tt.data, tt.perm); err != nil {
				t.Fatalf("AtomicWriteFile() error = %v", err)
			}

			got, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("reading file: %v", err)
			}
			if string(got) != string(tt.data) {
				t.Errorf("content = %q, want %q", got, tt.data)
			}

			info, err := os.Stat(path)
			if err != nil {
				t.Fatalf("stating file: %v", err)
			}
			if gotPerm := info.Mode().Perm(); gotPerm != tt.perm {
				t.Errorf("permissions = %o, want %o", gotPerm, tt.perm)
			}
		})
	}
}

func TestAtomicWriteFile_DirectoryNotExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent", "file.txt")

	err := AtomicWriteFile(path, []byte("data"), 0o600)
	if err == nil {
		t.Fatal("AtomicWriteFile() expected error for nonexistent directory")
	}
	if !errors.Is(err, errors.ErrIO) {
		t.Errorf("expected error marked as ErrIO, got %v", err)
	}
}

func TestAtomicWriteFile_OverwriteExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "existing-file")
	if err := os.WriteFile(path, []byte("original content\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := AtomicWriteFile(path, []byte("new content\n"), 0o600); err != nil {
		t.Fatalf("AtomicWriteFile() error = %v", err)
	}

	got, _ := os.ReadFile(path)
	if string(got) != "new content\n" {
		t.Errorf("content = %q, want %q", got, "new content\n")
	}
}

func TestAtomicWriteFile_NoTempFileLeft(t *testing.T) {
	dir := t.TempDir()

	if err := AtomicWriteFile(filepath.Join(dir, "ok.json"), []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}
	_ = AtomicWriteFile(filepath.Join(dir, "missing", "file.txt"), []byte("data"), 0o600)

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", entry.Name())
		}
	}
}

func TestWriteIfChanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")

	changed, err := WriteIfChanged(path, []byte("a\n"), 0o644)
	if err != nil || !changed {
		t.Fatalf("first write: changed=%v err=%v", changed, err)
	}

	info1, _ := os.Stat(path)

	changed, err = WriteIfChanged(path, []byte("a\n"), 0o644)
	if err != nil || changed {
		t.Fatalf("identical write: changed=%v err=%v", changed, err)
	}
	info2, _ := os.Stat(path)
	if !os.SameFile(info1, info2) {
		t.Error("identical write replaced the file")
	}

	changed, err = WriteIfChanged(path, []byte("b\n"), 0o644)
	if err != nil || !changed {
		t.Fatalf("different write: changed=%v err=%v", changed, err)
	}
}

func TestExistingPerm(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")

	if got := ExistingPerm(path, 0o640); got != 0o640 {
		t.Errorf("missing file: got %o, want fallback 640", got)
	}

	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		t.Fatal(err)
	}
	if got := ExistingPerm(path, 0o644); got != 0o600 {
		t.Errorf("existing file: got %o, want 600", got)
	}
}

func TestAtomicWriteJSON(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		wantJSON string
		wantErr  bool
	}{
		{
			name:     "nested object",
			value:    map[string]any{"mcpServers": map[string]any{"fs": map[string]any{"command": "node"}}},
			wantJSON: "{\n  \"mcpServers\": {\n    \"fs\": {\n      \"command\": \"node\"\n    }\n  }\n}\n",
		},
		{
			name:     "no html escaping",
			value:    map[string]string{"url": "https://x.test/mcp?a=1&b=<2>"},
			wantJSON: "{\n  \"url\": \"https://x.test/mcp?a=1&b=<2>\"\n}\n",
		},
		{
			name:    "unmarshalable value",
			value:   map[string]any{"ch": make(chan int)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.json")

			err := AtomicWriteJSON(path, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("AtomicWriteJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if _, statErr := os.Stat(path); statErr == nil {
					t.Error("file should not exist after marshal failure")
				}
				return
			}

			got, _ := os.ReadFile(path)
			if string(got) != tt.wantJSON {
				t.Errorf("content =\n%s\nwant\n%s", got, tt.wantJSON)
			}
		})
	}
}

func TestAtomicWriteYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	value := map[string]any{"runtime": "node", "probe": map[string]any{"grace_period": "3s"}}
	if err := AtomicWriteYAML(path, value); err != nil {
		t.Fatalf("AtomicWriteYAML() error = %v", err)
	}

	got, _ := os.ReadFile(path)
	want := "probe:\n    grace_period: 3s\nruntime: node\n"
	if string(got) != want {
		t.Errorf("content = %q, want %q", got, want)
	}
}

func TestAtomicWriteYAML_UnmarshalableRecovers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")

	err := AtomicWriteYAML(path, map[string]any{"fn": func() {}})
	if err == nil {
		t.Fatal("expected error for unmarshalable value")
	}
}
