package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "project-factory",
		Short:        "Campaign resource ingestion and project mapping service",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", ".", "Directory holding config.yaml")
	cmd.AddCommand(newServeCmd(&configPath))
	cmd.AddCommand(newMigrateCmd(&configPath))
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
