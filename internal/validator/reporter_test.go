package validator

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *Result {
	r := &Result{}
	r.AddWarning("github", "env", "value looks like a placeholder")
	r.AddError("github", "url", "must be absolute")
	r.AddInfo("github", "", "remote server")
	r.Add(Issue{
		Severity: SeverityWarning,
		Server:   "db",
		Field:    "command",
		Message:  "command not found",
		Value:    "db-mcp",
		Context:  map[string]string{"hint": "extra_paths", "path": "/usr/bin"},
	})
	r.AddError("", "", "registry is not an object")
	return r
}

func TestReporter_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewReporter(&buf, FormatText).Report(sampleResult()))
	out := buf.String()

	assert.Contains(t, out, "Validation found 2 error(s), 2 warning(s)")
	assert.Contains(t, out, "⚠ command: command not found [db-mcp] (hint=extra_paths, path=/usr/bin)")
	assert.NotContains(t, out, "remote server", "info issues are not printed")

	// Servers are sorted and errors lead within a server.
	assert.Less(t, strings.Index(out, "(registry)"), strings.Index(out, "db\n"))
	assert.Less(t, strings.Index(out, "db\n"), strings.Index(out, "github\n"))
	assert.Less(t, strings.Index(out, "✗ url: must be absolute"), strings.Index(out, "⚠ env:"))
}

func TestReporter_TextValid(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewReporter(&buf, FormatText).Report(&Result{}))
	assert.Equal(t, "✓ Registry is valid\n", buf.String())
}

func TestReporter_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewReporter(&buf, FormatJSON).Report(sampleResult()))

	var got jsonReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.False(t, got.Valid)
	assert.Equal(t, 2, got.Errors)
	assert.Equal(t, 2, got.Warnings)
	assert.Len(t, got.Issues, 5)
	assert.Contains(t, buf.String(), `"severity": "warning"`)
}

func TestReporter_JSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewReporter(&buf, FormatJSON).Report(&Result{}))
	assert.Contains(t, buf.String(), `"valid": true`)
	assert.Contains(t, buf.String(), `"issues": []`)
}

func TestReporter_NilResult(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewReporter(&buf, FormatText).Report(nil))
	assert.Empty(t, buf.String())
}

func TestFormatIssue_TruncatesValue(t *testing.T) {
	got := formatIssue(Issue{Severity: SeverityError, Message: "bad", Value: strings.Repeat("x", 80)})
	assert.Contains(t, got, strings.Repeat("x", 47)+"...]")
	assert.NotContains(t, got, strings.Repeat("x", 48))
}
