package prompt

import (
	"bytes"
	"strings"
	"testing"

	"github.com/thoreinstein/clawmgr/internal/errors"
)

func TestConfirm(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"yes", true},
		{"maybe\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			got, err := NewWithIO(strings.NewReader(tt.input), &buf).Confirm("Remove it?")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Confirm() = %v, want %v", got, tt.want)
			}
			if !strings.Contains(buf.String(), "Remove it? [y/N]") {
				t.Errorf("prompt not written: %q", buf.String())
			}
		})
	}
}

func TestSelect_Empty(t *testing.T) {
	t.Parallel()

	_, err := NewWithIO(strings.NewReader(""), &bytes.Buffer{}).Select("pick", nil)
	if !errors.Is(err, ErrNoChoices) {
		t.Errorf("expected ErrNoChoices, got: %v", err)
	}
}

func TestSelect_SingleChoiceNoPrompt(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	idx, err := NewWithIO(strings.NewReader(""), &buf).Select("pick", []string{"only"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx != 0 {
		t.Errorf("idx = %d, want 0", idx)
	}
	if buf.Len() > 0 {
		t.Errorf("expected no output for single choice, got: %s", buf.String())
	}
}

func TestSelect(t *testing.T) {
	t.Parallel()

	choices := []string{"github", "filesystem", "docs"}
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr error
	}{
		{"default", "\n", 0, nil},
		{"second", "2\n", 1, nil},
		{"last", "3\n", 2, nil},
		{"zero", "0\n", 0, ErrInvalidSelection},
		{"too large", "4\n", 0, ErrInvalidSelection},
		{"not a number", "abc\n", 0, ErrInvalidSelection},
		{"eof", "", 0, ErrSelectionCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			got, err := NewWithIO(strings.NewReader(tt.input), &buf).Select("Pick a server:", choices)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Select() = %d, want %d", got, tt.want)
			}
			if !strings.Contains(buf.String(), "[2] filesystem") {
				t.Errorf("choices not listed: %q", buf.String())
			}
		})
	}
}
