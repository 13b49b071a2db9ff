// Package config provides configuration management for clawmgr using Viper.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/thoreinstein/clawmgr/internal/errors"
	"github.com/thoreinstein/clawmgr/internal/paths"
)

// EnvPrefix is prepended to environment overrides, e.g. CLAWMGR_RUNTIME.
const EnvPrefix = "CLAWMGR"

// Config keys. Nested keys use viper's dot notation.
const (
	KeyVersion            = "version"
	KeyRegistryPath       = "registry_path"
	KeyExternalStorePath  = "external_store_path"
	KeyInstallRoot        = "install_root"
	KeyPlatformConfigPath = "platform_config_path"
	KeyRuntime            = "runtime"
	KeyPackageManager     = "package_manager"
	KeyCompanionTool      = "companion_tool"
	KeyCompanionPackage   = "companion_package"
	KeyPlatformCLI        = "platform_cli"
	KeyExtraPaths         = "extra_paths"
	KeyProbeGracePeriod   = "probe.grace_period"
	KeyProbeHTTPTimeout   = "probe.http_timeout"
	KeyBackupRetention    = "backup.retention"
)

// Defaults for the keys above that do not depend on the home directory.
const (
	DefaultRuntime          = "node"
	DefaultPackageManager   = "npm"
	DefaultCompanionTool    = "mcporter"
	DefaultCompanionPackage = "mcporter"
	DefaultPlatformCLI      = "openclaw"
	DefaultGracePeriod      = 3 * time.Second
	DefaultHTTPTimeout      = 10 * time.Second
	DefaultBackupRetention  = 5
)

// Config represents the top-level configuration structure.
type Config struct {
	Version            int          `mapstructure:"version" yaml:"version"`
	RegistryPath       string       `mapstructure:"registry_path" yaml:"registry_path"`
	ExternalStorePath  string       `mapstructure:"external_store_path" yaml:"external_store_path"`
	InstallRoot        string       `mapstructure:"install_root" yaml:"install_root"`
	PlatformConfigPath string       `mapstructure:"platform_config_path" yaml:"platform_config_path"`
	Runtime            string       `mapstructure:"runtime" yaml:"runtime"`
	PackageManager     string       `mapstructure:"package_manager" yaml:"package_manager"`
	CompanionTool      string       `mapstructure:"companion_tool" yaml:"companion_tool"`
	CompanionPackage   string       `mapstructure:"companion_package" yaml:"companion_package"`
	PlatformCLI        string       `mapstructure:"platform_cli" yaml:"platform_cli"`
	ExtraPaths         []string     `mapstructure:"extra_paths" yaml:"extra_paths"`
	Probe              ProbeConfig  `mapstructure:"probe" yaml:"probe"`
	Backup             BackupConfig `mapstructure:"backup" yaml:"backup"`
}

// ProbeConfig tunes liveness checks.
type ProbeConfig struct {
	// GracePeriod is how long a spawned stdio server gets before it is
	// judged alive.
	GracePeriod time.Duration `mapstructure:"grace_period" yaml:"grace_period"`
	// HTTPTimeout bounds the remote initialize POST.
	HTTPTimeout time.Duration `mapstructure:"http_timeout" yaml:"http_timeout"`
}

// BackupConfig controls snapshots of the companion tool's store.
type BackupConfig struct {
	Retention int `mapstructure:"retention" yaml:"retention"`
}

// Default returns the configuration used when no file or override exists.
func Default() *Config {
	return &Config{
		Version:            1,
		RegistryPath:       paths.RegistryPath(),
		ExternalStorePath:  paths.ExternalStorePath(),
		InstallRoot:        paths.InstallRoot(),
		PlatformConfigPath: paths.PlatformConfigPath(),
		Runtime:            DefaultRuntime,
		PackageManager:     DefaultPackageManager,
		CompanionTool:      DefaultCompanionTool,
		CompanionPackage:   DefaultCompanionPackage,
		PlatformCLI:        DefaultPlatformCLI,
		ExtraPaths:         []string{},
		Probe: ProbeConfig{
			GracePeriod: DefaultGracePeriod,
			HTTPTimeout: DefaultHTTPTimeout,
		},
		Backup: BackupConfig{Retention: DefaultBackupRetention},
	}
}

// Init initializes Viper with default configuration.
// Call this once at application startup before accessing config values.
func Init() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(paths.AppConfigDir())

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	d := Default()
	viper.SetDefault(KeyVersion, d.Version)
	viper.SetDefault(KeyRegistryPath, d.RegistryPath)
	viper.SetDefault(KeyExternalStorePath, d.ExternalStorePath)
	viper.SetDefault(KeyInstallRoot, d.InstallRoot)
	viper.SetDefault(KeyPlatformConfigPath, d.PlatformConfigPath)
	viper.SetDefault(KeyRuntime, d.Runtime)
	viper.SetDefault(KeyPackageManager, d.PackageManager)
	viper.SetDefault(KeyCompanionTool, d.CompanionTool)
	viper.SetDefault(KeyCompanionPackage, d.CompanionPackage)
	viper.SetDefault(KeyPlatformCLI, d.PlatformCLI)
	viper.SetDefault(KeyExtraPaths, d.ExtraPaths)
	viper.SetDefault(KeyProbeGracePeriod, d.Probe.GracePeriod)
	viper.SetDefault(KeyProbeHTTPTimeout, d.Probe.HTTPTimeout)
	viper.SetDefault(KeyBackupRetention, d.Backup.Retention)
}

// Keys returns every recognized key in display order.
func Keys() []string {
	return []string{
		KeyVersion,
		KeyRegistryPath,
		KeyExternalStorePath,
		KeyInstallRoot,
		KeyPlatformConfigPath,
		KeyRuntime,
		KeyPackageManager,
		KeyCompanionTool,
		KeyCompanionPackage,
		KeyPlatformCLI,
		KeyExtraPaths,
		KeyProbeGracePeriod,
		KeyProbeHTTPTimeout,
		KeyBackupRetention,
	}
}

// IsKnownKey reports whether key is one of Keys.
func IsKnownKey(key string) bool {
	for _, k := range Keys() {
		if k == key {
			return true
		}
	}
	return false
}

// Load reads the configuration file.
// If path is provided, it reads from that specific file and a missing file
// is an error. If path is empty, the default location is searched and a
// missing file means defaults plus environment overrides.
// Path values are returned with "~" expanded.
func Load(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound) && path == "":
			// implicit load without a file: defaults apply
		case errors.As(err, &notFound):
			return nil, errors.Wrapf(err, "config file not found at %s", path)
		default:
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) expandPaths() error {
	fields := []*string{
		&c.RegistryPath,
		&c.ExternalStorePath,
		&c.InstallRoot,
		&c.PlatformConfigPath,
	}
	for _, f := range fields {
		if *f == "" {
			continue
		}
		expanded, err := paths.ExpandHome(*f)
		if err != nil {
			return errors.Wrapf(err, "expanding %q", *f)
		}
		*f = expanded
	}
	for i, p := range c.ExtraPaths {
		expanded, err := paths.ExpandHome(p)
		if err != nil {
			return errors.Wrapf(err, "expanding extra path %q", p)
		}
		c.ExtraPaths[i] = expanded
	}
	return nil
}
