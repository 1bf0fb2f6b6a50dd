package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anime-shed/morph-inspector-go/internal/logger"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "morphscan",
		Short: "morphscan - detect digitally morphed photos",
		Long: `morphscan estimates how likely a photograph was digitally manipulated.

Six independent forensic analyzers (compression, noise, edges, lighting,
color and texture) look for regional inconsistencies, and their scores are
combined into a calibrated morph probability.`,
		Version:      version,
		SilenceUsage: true,
	}

	logLevel := cmd.PersistentFlags().String("log-level", "error", "Log level (debug, info, warn, error)")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		logger.SetLevel(*logLevel)
		logger.Logger.SetOutput(cmd.ErrOrStderr())
	}

	cmd.AddCommand(newDetectCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the morphscan version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "morphscan %s\n", version)
			return err
		},
	}
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
