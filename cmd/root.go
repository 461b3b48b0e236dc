package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tomasstrnad1997/minesai/ai"
	"github.com/tomasstrnad1997/minesai/config"
	"github.com/tomasstrnad1997/minesai/db"
	"github.com/tomasstrnad1997/minesai/game"
	"github.com/tomasstrnad1997/minesai/protocol"
	"github.com/tomasstrnad1997/minesai/server"
)

var (
	cfgFile  string
	logLevel string

	cfg    config.Config
	logger = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:           "minesai",
	Short:         "minesai - a minesweeper player that reasons about mines with propositional knowledge",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		return setupLogging(cfg.LogLevel)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func setupLogging(level string) error {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logger.SetLevel(parsed)
	ai.SetLogger(logger)
	db.SetLogger(logger)
	game.SetLogger(logger)
	protocol.SetLogger(logger)
	server.SetLogger(logger)
	return nil
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		logger.WithError(err).Error("command failed")
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "Path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(dbCmd)
}
