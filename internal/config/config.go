package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultConfigPath     = "config.toml"
	DefaultHTTPAddr       = ":8080"
	DefaultTimezone       = "Europe/Moscow"
	DefaultPGHost         = "127.0.0.1"
	DefaultPGPort         = 6432
	DefaultPGUser         = "postgres"
	DefaultPGDatabase     = "hgbot"
	DefaultPGSSLMode      = "require"
	DefaultSQLitePath     = "data/hgbot.db"
	DefaultStaleAfterDays = 7
	DefaultSweepSpec      = "0 11 * * 1"
	DefaultMeetingUTCHour = 3
	DefaultAfterOffset    = "3h"
	DefaultSendRatePerSec = 20

	StorageDriverPostgres = "postgres"
	StorageDriverSQLite   = "sqlite"
)

type Config struct {
	Log       LogConfig       `toml:"log"`
	Server    ServerConfig    `toml:"server"`
	Telegram  TelegramConfig  `toml:"telegram"`
	Bot       BotConfig       `toml:"bot"`
	Storage   StorageConfig   `toml:"storage"`
	Postgres  PostgresConfig  `toml:"postgres"`
	SQLite    SQLiteConfig    `toml:"sqlite"`
	Reminders RemindersConfig `toml:"reminders"`
}

type LogConfig struct {
	Level      string `toml:"level" env:"LOG_LEVEL" validate:"omitempty,oneof=debug info warn warning error"`
	Format     string `toml:"format" env:"LOG_FORMAT" validate:"omitempty,oneof=text json"`
	File       string `toml:"file" env:"LOG_FILE"`
	MaxSizeMB  int    `toml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `toml:"max_backups" validate:"gte=0"`
	Compress   bool   `toml:"compress"`
}

type ServerConfig struct {
	Addr string `toml:"addr" env:"HTTP_ADDR"`
}

type TelegramConfig struct {
	BotToken       string `toml:"bot_token" env:"BOT_TOKEN"`
	PollTimeoutSec int    `toml:"poll_timeout_sec" validate:"gte=0"`
	Debug          bool   `toml:"debug"`
}

// BotConfig holds conversation-level settings.
type BotConfig struct {
	// Admins may trigger the stale-report sweep from the chat.
	Admins   []string `toml:"admins" env:"ADMINS" envSeparator:","`
	Timezone string   `toml:"timezone" env:"TZ_NAME"`
}

type StorageConfig struct {
	Driver string `toml:"driver" env:"STORAGE_DRIVER" validate:"oneof=postgres sqlite"`
}

type PostgresConfig struct {
	Host     string `toml:"host" env:"DB_HOSTNAME"`
	Port     int    `toml:"port" env:"DB_PORT" validate:"gte=1,lte=65535"`
	User     string `toml:"user" env:"DB_USER"`
	Password string `toml:"password" env:"DB_PASSWORD"`
	Database string `toml:"database" env:"DB_NAME"`
	SSLMode  string `toml:"sslmode" env:"DB_SSLMODE"`
}

// DSN renders a pgx connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

type SQLiteConfig struct {
	Path string `toml:"path" env:"SQLITE_PATH"`
}

type RemindersConfig struct {
	Enabled        bool   `toml:"enabled" env:"REMINDERS_ENABLED"`
	SweepSpec      string `toml:"sweep_spec"`
	StaleAfterDays int    `toml:"stale_after_days" validate:"gte=1"`
	// MeetingUTCOffsetHours is the fixed zone meeting times are entered in.
	MeetingUTCOffsetHours int    `toml:"meeting_utc_offset_hours" validate:"gte=-12,lte=14"`
	BeforeOffset          string `toml:"before_offset"`
	AfterOffset           string `toml:"after_offset"`
	SendRatePerSec        int    `toml:"send_rate_per_sec" validate:"gte=1"`
}

// IsAdmin reports whether handle is listed in bot.admins; '@' prefixes are ignored.
func (c BotConfig) IsAdmin(handle string) bool {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if handle == "" {
		return false
	}
	for _, admin := range c.Admins {
		if strings.TrimPrefix(strings.TrimSpace(admin), "@") == handle {
			return true
		}
	}
	return false
}

func defaults() Config {
	return Config{
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  3,
			MaxBackups: 5,
			Compress:   true,
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Telegram: TelegramConfig{
			PollTimeoutSec: 30,
		},
		Bot: BotConfig{
			Timezone: DefaultTimezone,
		},
		Storage: StorageConfig{
			Driver: StorageDriverPostgres,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		SQLite: SQLiteConfig{
			Path: DefaultSQLitePath,
		},
		Reminders: RemindersConfig{
			Enabled:               true,
			SweepSpec:             DefaultSweepSpec,
			StaleAfterDays:        DefaultStaleAfterDays,
			MeetingUTCOffsetHours: DefaultMeetingUTCHour,
			BeforeOffset:          "0s",
			AfterOffset:           DefaultAfterOffset,
			SendRatePerSec:        DefaultSendRatePerSec,
		},
	}
}

// Load reads the TOML file at path (missing file means defaults), applies
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("decode %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, err
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
