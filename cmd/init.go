package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomasstrnad1997/minesai/config"
)

// initCmd: minesai init
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	// The file may not exist yet, so skip loading it.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(logLevel)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfigurationFile(cfgFile); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created/updated: %s\n", cfgFile)
		return nil
	},
}

func initConfigurationFile(configurationPath string) error {
	return config.Write(configurationPath, config.Default())
}
