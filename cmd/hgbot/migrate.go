package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/hgbot/hgbot/internal/config"
	"github.com/hgbot/hgbot/internal/db"
	"github.com/hgbot/hgbot/internal/logger"
	"github.com/hgbot/hgbot/internal/storage/sqlite"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			log := logger.Init(cfg.Log)
			defer func() { _ = logger.Close() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()
			if err := migrate(ctx, log, cfg); err != nil {
				log.Error("migration failed", slog.Any("error", err))
				return err
			}
			log.Info("migrations applied", slog.String("storage", cfg.Storage.Driver))
			return nil
		},
	}
}

func migrate(ctx context.Context, log *slog.Logger, cfg config.Config) error {
	switch cfg.Storage.Driver {
	case config.StorageDriverSQLite:
		store, err := sqlite.Open(ctx, log, cfg.SQLite.Path)
		if err != nil {
			return err
		}
		return store.Close()
	case config.StorageDriverPostgres, "":
		return db.Migrate(cfg.Postgres)
	default:
		return fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
