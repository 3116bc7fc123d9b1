// Package cmd provides the vigil command-line interface.
package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile   string
	debugMode bool
)

// NewRootCmd builds the vigil command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vigil",
		Short:         "Real-time security-event correlation engine",
		Long:          "vigil tails log sources, matches detection rules and raises threshold-in-window correlation alerts.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to YAML config file")
	root.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging")

	root.AddCommand(newServeCmd())
	root.AddCommand(newAlertsCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// newLogger builds the process logger. Production JSON output by default,
// console encoder under --debug.
func newLogger() (*zap.SugaredLogger, error) {
	var logger *zap.Logger
	var err error
	if debugMode {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}
