package config

import (
	"path/filepath"
	"strings"

	"github.com/thoreinstein/clawmgr/internal/errors"
)

// Validation errors for configuration fields.
var (
	// ErrVersionTooLow indicates the version field is below the minimum.
	ErrVersionTooLow = errors.New("version must be >= 1")

	// ErrInvalidPath indicates a path value is malformed.
	ErrInvalidPath = errors.New("invalid path")

	// ErrEmptyValue indicates a required string is blank.
	ErrEmptyValue = errors.New("value must not be empty")

	// ErrOutOfRange indicates a numeric or duration value is not positive.
	ErrOutOfRange = errors.New("value out of range")
)

// Validate checks a Config for validity.
// Returns nil if valid, or a slice of field errors.
func Validate(cfg *Config) []error {
	if cfg == nil {
		return []error{errors.New("config is nil")}
	}

	var errs []error

	if cfg.Version < 1 {
		errs = append(errs, ErrVersionTooLow)
	}

	for _, f := range []struct {
		key  string
		path string
	}{
		{KeyRegistryPath, cfg.RegistryPath},
		{KeyExternalStorePath, cfg.ExternalStorePath},
		{KeyInstallRoot, cfg.InstallRoot},
		{KeyPlatformConfigPath, cfg.PlatformConfigPath},
	} {
		if err := validatePath(f.path); err != nil {
			errs = append(errs, &FieldError{Field: f.key, Value: f.path, Err: err})
		}
	}

	for i, p := range cfg.ExtraPaths {
		if err := validatePath(p); err != nil {
			errs = append(errs, &FieldError{Field: KeyExtraPaths, Value: cfg.ExtraPaths[i], Err: err})
		}
	}

	for _, f := range []struct {
		key   string
		value string
	}{
		{KeyRuntime, cfg.Runtime},
		{KeyPackageManager, cfg.PackageManager},
		{KeyCompanionTool, cfg.CompanionTool},
		{KeyCompanionPackage, cfg.CompanionPackage},
		{KeyPlatformCLI, cfg.PlatformCLI},
	} {
		if strings.TrimSpace(f.value) == "" {
			errs = append(errs, &FieldError{Field: f.key, Err: ErrEmptyValue})
		}
	}

	if cfg.Probe.GracePeriod <= 0 {
		errs = append(errs, &FieldError{Field: KeyProbeGracePeriod, Value: cfg.Probe.GracePeriod.String(), Err: ErrOutOfRange})
	}
	if cfg.Probe.HTTPTimeout <= 0 {
		errs = append(errs, &FieldError{Field: KeyProbeHTTPTimeout, Value: cfg.Probe.HTTPTimeout.String(), Err: ErrOutOfRange})
	}
	if cfg.Backup.Retention < 0 {
		errs = append(errs, &FieldError{Field: KeyBackupRetention, Err: ErrOutOfRange})
	}

	return errs
}

// validatePath checks if a path string is well-formed and absolute.
// It does not check if the path exists.
func validatePath(path string) error {
	if path == "" {
		return ErrEmptyValue
	}
	if strings.ContainsRune(path, '\x00') {
		return ErrInvalidPath
	}
	if !filepath.IsAbs(filepath.Clean(path)) {
		return ErrInvalidPath
	}
	return nil
}

// FieldError ties a validation failure to the config key that caused it.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	if e.Value == "" {
		return e.Field + ": " + e.Err.Error()
	}
	return e.Field + ": " + e.Err.Error() + ": " + e.Value
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
