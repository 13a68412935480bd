package main

import (
	"assetguard/internal/config"
	"assetguard/internal/observability/logger"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "assetguard",
		Short:         "Asset integrity and tamper-detection engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newKeygenCmd(),
		newSignCmd(),
		newHashHotspotsCmd(),
		newAuditCmd(),
	)
	return root
}

// loadConfig reads the environment and initializes the process logger from it.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	logger.Init(logger.Config{Env: cfg.LogEnv, Level: cfg.LogLevel, ServiceName: "assetguard"})
	return cfg, nil
}
