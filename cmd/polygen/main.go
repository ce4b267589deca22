// Command polygen compiles .poly schema definitions into target-language
// source code (generate) and plans database migrations against them
// (migrate). See the cobra command tree below for the full flag surface.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/polygen/polygen/internal/config"
	"github.com/polygen/polygen/internal/logging"
)

func main() {
	var verbose bool
	var configFile string

	logger, err := logging.New(false)
	if err != nil {
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	rootCmd := &cobra.Command{
		Use:   "polygen",
		Short: "Polyglot schema compiler and migration planner",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if verbose {
				debugLogger, err := logging.New(true)
				if err != nil {
					return err
				}
				*logger = *debugLogger
			}
			return config.Init(configFile)
		},
	}
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a config file (TOML/YAML/JSON, resolved by viper)")

	rootCmd.AddCommand(generateCmd(logger))
	rootCmd.AddCommand(migrateCmd(logger))

	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}
