package doctor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/thoreinstein/clawmgr/internal/errors"
)

// DecodeFunc parses one store's bytes and reports why they are unusable.
type DecodeFunc func(data []byte) error

// SyntaxTarget is a JSON file checked by ConfigSyntaxCheck.
type SyntaxTarget struct {
	Label  string
	Path   string
	Decode DecodeFunc
}

// ConfigSyntaxCheck verifies that each store decodes the way clawmgr reads
// it. A file that fails here is never rewritten by sync.
type ConfigSyntaxCheck struct {
	targets []SyntaxTarget
}

var _ Check = (*ConfigSyntaxCheck)(nil)

// NewConfigSyntaxCheck creates a check over targets.
func NewConfigSyntaxCheck(targets ...SyntaxTarget) *ConfigSyntaxCheck {
	return &ConfigSyntaxCheck{targets: targets}
}

// Name returns the unique identifier for this check.
func (c *ConfigSyntaxCheck) Name() string {
	return "config-syntax"
}

// Category returns the grouping for this check.
func (c *ConfigSyntaxCheck) Category() string {
	return CategoryFiles
}

type syntaxFileResult struct {
	Label   string `json:"label"`
	Path    string `json:"path"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Run decodes every target.
func (c *ConfigSyntaxCheck) Run(_ context.Context) *CheckResult {
	result := &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
		Details:  make(map[string]any),
	}

	var files []syntaxFileResult
	var errorCount, passCount, missing int
	for _, t := range c.targets {
		fr := c.validateFile(t)
		files = append(files, fr)
		switch fr.Status {
		case "pass":
			passCount++
		case "error":
			errorCount++
		case "info":
			missing++
		}
	}

	result.Details["files"] = files
	result.Details["checked"] = len(files)
	result.Details["passed"] = passCount
	result.Details["errors"] = errorCount
	result.Details["missing"] = missing

	switch {
	case errorCount > 0:
		result.Status = SeverityError
		result.Message = fmt.Sprintf("%d file(s) cannot be parsed", errorCount)
		result.FixHint = "fix the syntax by hand or restore one with: clawmgr backup restore latest"
	case passCount > 0:
		result.Status = SeverityPass
		result.Message = fmt.Sprintf("%d file(s) parsed successfully", passCount)
	default:
		result.Status = SeverityInfo
		result.Message = "no files found to validate"
	}
	return result
}

func (c *ConfigSyntaxCheck) validateFile(t SyntaxTarget) syntaxFileResult {
	fr := syntaxFileResult{Label: t.Label, Path: t.Path}

	data, err := os.ReadFile(t.Path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		fr.Status = "info"
		fr.Message = "file does not exist yet"
		return fr
	case errors.Is(err, os.ErrPermission):
		fr.Status = "error"
		fr.Message = fmt.Sprintf("permission denied: %v", err)
		return fr
	case err != nil:
		fr.Status = "error"
		fr.Message = fmt.Sprintf("read error: %v", err)
		return fr
	}

	decode := t.Decode
	if decode == nil {
		decode = func(b []byte) error {
			var v any
			return json.Unmarshal(b, &v)
		}
	}
	if err := decode(data); err != nil {
		fr.Status = "error"
		fr.Message = formatJSONError(err, data)
		return fr
	}
	fr.Status = "pass"
	return fr
}

// formatJSONError extracts position information from JSON syntax errors.
func formatJSONError(err error, data []byte) string {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(data, int(syntaxErr.Offset))
		return fmt.Sprintf("JSON syntax error at line %d, column %d: %s", line, col, syntaxErr.Error())
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(data, int(typeErr.Offset))
		return fmt.Sprintf("JSON type error at line %d, column %d: %s", line, col, typeErr.Error())
	}

	return err.Error()
}

// offsetToLineCol converts a byte offset to line and column numbers.
// Lines and columns are 1-indexed.
func offsetToLineCol(data []byte, offset int) (line, col int) {
	offset = min(max(offset, 0), len(data))

	line = 1
	lineStart := 0
	for i := range offset {
		if data[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}
	return line, offset - lineStart + 1
}
