package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/mini-culture/internal/api"
	"github.com/talgya/mini-culture/internal/persistence"
	"github.com/talgya/mini-culture/internal/transmission"
)

func newServeCmd() *cobra.Command {
	var (
		dbPath     string
		port       int
		trustProxy bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored runs over HTTP",
		Long: `serve exposes the run history recorded by 'batch --db' as a JSON API.
POST /api/v1/simulate is enabled when CULTURESIM_ADMIN_KEY is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("db") {
				cfg.DBPath = dbPath
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			srv := &api.Server{
				Config:     cfg,
				Port:       port,
				AdminKey:   os.Getenv("CULTURESIM_ADMIN_KEY"),
				TrustProxy: trustProxy,
			}
			if cfg.DBPath != "" {
				db, err := persistence.Open(cfg.DBPath)
				if err != nil {
					return err
				}
				defer db.Close()
				srv.DB = db
				slog.Info("database opened", "path", cfg.DBPath)
			}

			httpSrv := srv.Start()

			<-cmd.Context().Done()
			slog.Info("shutting down")

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpSrv.Shutdown(ctx)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite file with run history")
	cmd.Flags().IntVar(&port, "port", 8080, "HTTP port")
	cmd.Flags().BoolVar(&trustProxy, "trust-proxy", false, "Rate-limit by X-Forwarded-For (only behind a reverse proxy)")
	return cmd
}

func newStrategiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List transmission strategies",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range transmission.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}
