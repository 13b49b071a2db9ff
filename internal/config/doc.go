// Package config provides configuration management for the clawmgr CLI.
//
// This package handles loading, writing, and validating clawmgr's own
// configuration file. It does not touch the platform's document or the
// companion tool's store; those live in configstore and reconcile.
//
// # Configuration File
//
// The default location is <XDG config home>/clawmgr/config.yaml:
//
//	version: 1
//	registry_path: ~/.openclaw/mcps.json
//	external_store_path: ~/.mcporter/mcporter.json
//	install_root: ~/.openclaw/mcps
//	platform_config_path: ~/.openclaw/openclaw.json
//	runtime: node
//	package_manager: npm
//	companion_tool: mcporter
//	companion_package: mcporter
//	platform_cli: openclaw
//	extra_paths: []
//	probe:
//	  grace_period: 3s
//	  http_timeout: 10s
//	backup:
//	  retention: 5
//
// Every key can be overridden from the environment with the CLAWMGR_ prefix,
// dots replaced by underscores (CLAWMGR_PROBE_GRACE_PERIOD=5s).
//
// # Loading Configuration
//
//	config.Init()
//	cfg, err := config.Load("")
//
// [Load] with an empty path tolerates a missing file. An explicit path
// must exist.
//
// # Validation
//
// [Validate] returns one [FieldError] per offending key.
package config
