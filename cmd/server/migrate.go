package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/arturoeanton/cirkle/internal/adapter/store"
	"github.com/arturoeanton/cirkle/pkg/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded Postgres schema migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.StoreBackend != config.BackendPostgres {
			return fmt.Errorf("migrate needs STORE_BACKEND=%s, got %q", config.BackendPostgres, cfg.StoreBackend)
		}

		pg, err := store.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pg.Close()

		if err := pg.Migrate(cmd.Context()); err != nil {
			return err
		}
		slog.Info("database is up to date", "dsn", cfg.DSN())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
