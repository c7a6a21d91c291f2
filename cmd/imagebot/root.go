package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	corecmd "github.com/m3rciful/imagebot/core/cmd"
	"github.com/m3rciful/imagebot/internal/app"
)

const (
	configEnvVar      = "CONFIG_PATH"
	defaultConfigPath = "config.yaml"
)

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "imagebot",
		Short:        "Telegram bot that turns text prompts into images",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			return runBot(cmd.Context(), path)
		},
	}
	cmd.PersistentFlags().String("config", "", "Config file path (default $"+configEnvVar+" or "+defaultConfigPath+").")

	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func runBot(ctx context.Context, path string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return corecmd.Run(ctx, corecmd.Options{
		ConfigPath:        path,
		ConfigEnvVar:      configEnvVar,
		DefaultConfigPath: defaultConfigPath,
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return app.Load(path)
		},
		Bootstrap: func(ctx context.Context, cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			return app.Bootstrap(ctx, cfg.(*app.Config))
		},
	})
}

func loadConfig(cmd *cobra.Command) (*app.Config, error) {
	explicit, _ := cmd.Flags().GetString("config")
	path, err := corecmd.ResolveConfigPath(explicit, configEnvVar, defaultConfigPath)
	if err != nil {
		return nil, err
	}
	return app.Load(path)
}
