package cmd

import (
	logger "github.com/PolarWolf314/sfcpay/internal/logging"
	"github.com/spf13/cobra"
)

var (
	configVerbose bool
	configDebug   bool
	configFile    string

	// ConfigCmd is the top-level config command.
	ConfigCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage sfcpay configuration",
		Long: `Provides commands for managing the sfcpay configuration file.

The config file is looked up in this order: --config, the nearest sfcpay.toml
in the working directory or its parents, then the user config file.

Use these commands to:
  - Create a starter configuration (config init)
  - Show the effective configuration (config show)
  - Validate certificates and keys without calling the API (config check)
  - Protect the encryption key with AWS KMS (config seal-key)

Examples:
  # Create a config for the UAT environment
  sfcpay config init --certificate client.crt --private-key client.key --uat

  # Check that everything is in place
  sfcpay config check`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			Logger = logger.Logger{
				Verbose: configVerbose,
				Debug:   configDebug,
				Out:     statusOut,
			}
			Logger.Debugf("Initializing config command with verbose=%t, debug=%t", configVerbose, configDebug)
		},
	}
)

func init() {
	ConfigCmd.PersistentFlags().BoolVarP(&configVerbose, "verbose", "v", false, "enable verbose output")
	ConfigCmd.PersistentFlags().BoolVarP(&configDebug, "debug", "d", false, "enable debug output")
	ConfigCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to the config file")

	ConfigCmd.AddCommand(configInitCmd)
	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configCheckCmd)
	ConfigCmd.AddCommand(configSealKeyCmd)
}

// GetConfigCmd returns the ConfigCmd for testing.
func GetConfigCmd() *cobra.Command {
	return ConfigCmd
}

// ResetConfigState resets all config command global variables to their default values for testing.
func ResetConfigState() {
	configVerbose = false
	configDebug = false
	configFile = ""
	resetConfigInitState()
	resetConfigShowState()
	resetConfigCheckState()
	resetSealKeyState()
	resetCobraFlagState(ConfigCmd)
}
