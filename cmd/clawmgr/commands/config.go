package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/clawmgr/internal/config"
	"github.com/thoreinstein/clawmgr/internal/errors"
	"github.com/thoreinstein/clawmgr/internal/paths"
)

var configInitForce bool

func init() {
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false,
		"overwrite an existing configuration file")

	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage clawmgr configuration",
	Long: `Manage clawmgr's own configuration stored in
$XDG_CONFIG_HOME/clawmgr/config.yaml.

Every key can also be set from the environment with the CLAWMGR_ prefix,
e.g. CLAWMGR_RUNTIME=bun or CLAWMGR_PROBE_GRACE_PERIOD=5s.

Without a subcommand, lists all configuration values.`,
	Example: `  # List all configuration
  clawmgr config

  # Get a specific value
  clawmgr config get probe.grace_period

  # Set a value
  clawmgr config set package_manager pnpm

See Also: clawmgr doctor`,
	RunE: runConfigList,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long: `Get a single configuration value by key.

Supports dot notation for nested keys. List values are printed one per line.`,
	Example: `  clawmgr config get runtime
  clawmgr config get extra_paths`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the config file.

For extra_paths, pass a comma-separated list. Durations use Go syntax (3s, 1500ms).`,
	Example: `  clawmgr config set package_manager pnpm
  clawmgr config set extra_paths ~/.nvm/versions/node/v22.0.0/bin
  clawmgr config set probe.grace_period 5s`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configuration",
	Long:  `List all effective configuration values in YAML format.`,
	RunE:  runConfigList,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long:  `Write the default configuration to the config file location.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

// configPath returns the file config commands read and write.
func configPath() string {
	if configFile != "" {
		return configFile
	}
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return paths.AppConfigFile()
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	key := args[0]
	if !config.IsKnownKey(key) {
		return errors.NewUserError(errors.Wrap(config.ErrUnknownKey, key), "Run: clawmgr config list")
	}

	w := cmd.OutOrStdout()
	switch v := viper.Get(key).(type) {
	case []any:
		for _, item := range v {
			fmt.Fprintln(w, item)
		}
	case []string:
		for _, item := range v {
			fmt.Fprintln(w, item)
		}
	default:
		fmt.Fprintln(w, viper.GetString(key))
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	value, err := config.SetValue(configPath(), args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %v\n", args[0], value)
	return nil
}

func runConfigList(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return errors.NewConfigError(err)
	}
	return writeYAML(cmd.OutOrStdout(), cfg)
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path := configPath()
	if err := config.WriteDefault(path, configInitForce); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "marshaling config")
	}
	return errors.Wrap(enc.Close(), "marshaling config")
}
