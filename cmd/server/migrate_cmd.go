package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/healthcampaign/project-factory/internal/config"
	"github.com/healthcampaign/project-factory/internal/db"
	"github.com/healthcampaign/project-factory/internal/logging"
)

func newMigrateCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the read model schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			return db.RunMigrations(cfg.Database, log)
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back applied migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps <= 0 {
				return fmt.Errorf("--steps must be positive")
			}
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			return db.RollbackMigrations(cfg.Database, steps, log)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")
	cmd.AddCommand(down)
	return cmd
}

func loadConfig(path string) (config.Config, *logrus.Entry, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	return cfg, logrus.NewEntry(logger).WithField("service", "project-factory"), nil
}
