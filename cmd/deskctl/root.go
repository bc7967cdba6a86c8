package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"complaint-desk/internal/app"
	"complaint-desk/internal/core/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "deskctl",
	Short:         "Operations CLI for complaint-desk: migrations, admins, complaint types, retention",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $CONFIG_PATH or ./configs/config.local.yaml)")
	rootCmd.AddCommand(migrateCmd, reapCmd, adminCmd, typesCmd)
}

func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// bootstrap 构建完整依赖；调用方负责 close
func bootstrap() (*app.App, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log, cleanup := app.Logger(cfg)
	a, err := app.New(cfg, log)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return a, func() {
		a.Close()
		cleanup()
	}, nil
}

func logger(a *app.App) *zap.Logger { return a.Log.Named("deskctl") }
