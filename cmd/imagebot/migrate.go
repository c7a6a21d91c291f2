package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/m3rciful/imagebot/core/bootstrap"
	"github.com/m3rciful/imagebot/core/logger"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Shutdown() }()

			res, err := bootstrap.Run(cmd.Context(), bootstrap.Options{Config: &cfg.Config, Database: cfg.Database})
			if err != nil {
				return err
			}
			if err := res.DB.Close(); err != nil {
				return fmt.Errorf("close database: %w", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
