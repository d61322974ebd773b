package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/hgbot/hgbot/internal/config"
	"github.com/hgbot/hgbot/internal/db"
	"github.com/hgbot/hgbot/internal/storage"
	"github.com/hgbot/hgbot/internal/storage/postgres"
	"github.com/hgbot/hgbot/internal/storage/sqlite"
)

const envConfigPath = "CONFIG_PATH"

type rootOptions struct {
	configPath string
}

func Execute() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "hgbot",
		Short:        "Home group attendance bot",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv(envConfigPath),
		"Config file path (env CONFIG_PATH, default config.toml).")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newRemindCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func (o *rootOptions) load() (config.Config, error) {
	cfg, err := config.Load(strings.TrimSpace(o.configPath))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func loadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("bot.timezone: %w", err)
	}
	return loc, nil
}

// openStore connects the configured backend. SQLite always applies its
// migrations on open; Postgres does so only when migrate is set.
func openStore(ctx context.Context, log *slog.Logger, cfg config.Config, migrate bool) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverSQLite:
		store, err := sqlite.Open(ctx, log, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StorageDriverPostgres, "":
		if migrate {
			if err := db.Migrate(cfg.Postgres); err != nil {
				return nil, err
			}
		}
		pool, err := db.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		return postgres.New(log, pool), nil
	default:
		return nil, errors.New("unknown storage driver " + cfg.Storage.Driver)
	}
}
