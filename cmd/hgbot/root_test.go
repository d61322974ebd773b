package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hgbot/hgbot/internal/config"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	t.Parallel()

	root := newRootCmd()
	for _, name := range []string{"serve", "migrate", "remind", "version"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "hgbot dev"), out.String())
}

func TestLoadLocation(t *testing.T) {
	t.Parallel()

	loc, err := loadLocation("")
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	loc, err = loadLocation("Europe/Moscow")
	require.NoError(t, err)
	assert.Equal(t, "Europe/Moscow", loc.String())

	_, err = loadLocation("Mars/Olympus")
	assert.Error(t, err)
}

func TestOpenStoreSQLite(t *testing.T) {
	t.Parallel()

	cfg := config.Config{
		Storage: config.StorageConfig{Driver: config.StorageDriverSQLite},
		SQLite:  config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "data", "hgbot.db")},
	}
	store, err := openStore(context.Background(), nil, cfg, true)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	assert.NoError(t, store.Ping(context.Background()))

	cfg.Storage.Driver = "mysql"
	_, err = openStore(context.Background(), nil, cfg, false)
	assert.Error(t, err)
}

func writeConfig(t *testing.T, dbPath string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	content := fmt.Sprintf(`
[log]
level = "error"

[bot]
timezone = "Europe/Moscow"

[storage]
driver = "sqlite"

[sqlite]
path = %q
`, dbPath)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestMigrateThenRemindDryRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "hgbot.db")
	cfgPath := writeConfig(t, dbPath)

	root := newRootCmd()
	root.SetArgs([]string{"--config", cfgPath, "migrate"})
	require.NoError(t, root.Execute())

	sqlDB, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	for _, stmt := range []string{
		`INSERT INTO groups (group_id, leader_name, leader_handles, is_active) VALUES ('5', 'Пётр', '@petr', 1)`,
		`INSERT INTO groups (group_id, leader_name, leader_handles, is_active) VALUES ('6', 'Ольга', 'olga', 1)`,
		`INSERT INTO leader_accounts (handle, telegram_id, updated_at) VALUES ('petr', 42, 0), ('olga', 43, 0)`,
		`INSERT INTO reminder_recipients (handle) VALUES ('petr')`,
	} {
		_, err := sqlDB.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	require.NoError(t, sqlDB.Close())

	root = newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--config", cfgPath, "remind", "--dry-run"})
	require.NoError(t, root.Execute())

	text := out.String()
	assert.Contains(t, text, "--- chat 42 ---")
	assert.Contains(t, text, "Пётр (@petr)")
	assert.NotContains(t, text, "chat 43", "olga is not a reminder recipient")
}
