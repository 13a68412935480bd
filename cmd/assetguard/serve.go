package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"assetguard/internal/infra/db"
	httpinfra "assetguard/internal/infra/http"
	"assetguard/internal/infra/memstore"
	"assetguard/internal/infra/metrics"
	"assetguard/internal/observability/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := logger.Named("serve")
			if cfg.LogEnv == "prod" {
				gin.SetMode(gin.ReleaseMode)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, err := db.NewStore(cfg, log)
			if err != nil {
				return err
			}
			defer store.Close()

			repos := httpinfra.MemoryRepositories(memstore.New())
			if store.Enabled() {
				if migrate {
					applied, err := db.Migrate(ctx, store.DB)
					if err != nil {
						return err
					}
					log.Info("migrations applied", logger.Reason(joinNames(applied)))
				}
				repos = httpinfra.DBRepositories(store)
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			m, err := metrics.New(reg)
			if err != nil {
				return err
			}

			ext, err := httpinfra.ExternalsFromConfig(ctx, cfg)
			if err != nil {
				return err
			}
			deps := httpinfra.BuildDeps(cfg, repos, ext, m, nil)
			return httpinfra.NewServer(cfg, deps).Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := db.NewStore(cfg, logger.Named("migrate"))
			if err != nil {
				return err
			}
			defer store.Close()
			if !store.Enabled() {
				return errNoDatabase
			}
			applied, err := db.Migrate(cmd.Context(), store.DB)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", len(applied))
			for _, name := range applied {
				fmt.Fprintln(cmd.OutOrStdout(), "  "+name)
			}
			return nil
		},
	}
}
