// Package cmd contains the CLI commands for the application date engine.
package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Global vars needed for cobra CLI
var (
	cfgFile string
	logger  *logrus.Logger
)

//nolint:gochecknoglobals // Cobra commands are typically global
var rootCmd = &cobra.Command{
	Use:   "appdate",
	Short: "Pesticide application date engine",
	Long: `Expands pesticide label practices into model runs, assigns
application dates and rates within label constraints, and validates
batch files against the label.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "run.yaml", "run configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	logger = logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

// setLogLevel applies the configured level, letting the flag win.
func setLogLevel(configured string) {
	level := configured
	if flag, err := rootCmd.PersistentFlags().GetString("log-level"); err == nil && flag != "" {
		level = flag
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		logger.WithError(err).Warn("Invalid log level, defaulting to info")
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)
}
