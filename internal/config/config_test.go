package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, StorageDriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, DefaultPGPort, cfg.Postgres.Port)
	assert.Equal(t, DefaultStaleAfterDays, cfg.Reminders.StaleAfterDays)
	assert.Equal(t, DefaultTimezone, cfg.Bot.Timezone)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[storage]
driver = "sqlite"

[sqlite]
path = "/tmp/x.db"

[bot]
admins = ["@root"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMINS", "@alice,bob")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, StorageDriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "/tmp/x.db", cfg.SQLite.Path)
	assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
	assert.Equal(t, []string{"@alice", "bob"}, cfg.Bot.Admins)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[storage]\ndriver = \"mysql\"\n"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestIsAdmin(t *testing.T) {
	cfg := BotConfig{Admins: []string{"@alice", " bob "}}
	assert.True(t, cfg.IsAdmin("alice"))
	assert.True(t, cfg.IsAdmin("@bob"))
	assert.False(t, cfg.IsAdmin("carol"))
	assert.False(t, cfg.IsAdmin(""))
}

func TestPostgresDSN(t *testing.T) {
	c := PostgresConfig{Host: "db", Port: 6432, User: "u", Password: "p", Database: "hg", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:6432/hg?sslmode=disable", c.DSN())
}
