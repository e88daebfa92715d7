// Package config loads server settings from flags, environment variables
// and an optional config file.
//
// Environment variables use the STICKERDOKO_ prefix with dots replaced by
// underscores, e.g. STICKERDOKO_DATABASE_DSN. The legacy names TELOXIDE_TOKEN,
// DB_URL and STICKERS_SECRET are still read.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mikepea/stickerdoko/pkg/stickerdoko/logger"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/search"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "STICKERDOKO"

// Config holds the server configuration
type Config struct {
	Telegram TelegramConfig
	Database DatabaseConfig
	Admin    AdminConfig
	Search   SearchConfig
	Server   ServerConfig
	Log      LogConfig
}

// TelegramConfig holds bot settings
type TelegramConfig struct {
	Token       string
	BotUsername string
	WebhookURL  string // Optional; webhook registration is skipped when empty
	SecretToken string // Optional
}

// DatabaseConfig holds store settings
type DatabaseConfig struct {
	DSN string
}

// AdminConfig holds administrative settings
type AdminConfig struct {
	Secret   string
	TokenTTL time.Duration
}

// SearchConfig holds search settings
type SearchConfig struct {
	Limit int
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string
}

var defaults = map[string]any{
	"telegram.bot_username":   "sticker_doko_bot",
	"database.dsn":            "stickerdoko.db",
	"admin.token_ttl":         time.Hour,
	"search.limit":            search.DefaultLimit,
	"server.addr":             ":8080",
	"server.shutdown_timeout": 10 * time.Second,
	"log.level":               "info",
	"log.format":              logger.FormatText,
}

// legacyEnv maps keys to their unprefixed legacy environment variables
var legacyEnv = map[string]string{
	"telegram.token": "TELOXIDE_TOKEN",
	"database.dsn":   "DB_URL",
	"admin.secret":   "STICKERS_SECRET",
}

// flagKeys maps command-line flags to config keys
var flagKeys = map[string]string{
	"addr":      "server.addr",
	"dsn":       "database.dsn",
	"log-level": "log.level",
}

// New returns a viper instance with defaults and environment bindings
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for key, env := range legacyEnv {
		// The prefixed name wins over the legacy one
		_ = v.BindEnv(key, envPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env)
	}
	return v
}

// RegisterFlags adds the config flags to flags
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("addr", "", "listen address (default :8080)")
	flags.String("dsn", "", "database DSN, a SQLite path or postgres:// URL")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
}

// BindFlags makes flags registered with RegisterFlags override other sources
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// ReadFile merges a YAML, TOML or JSON config file into v
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// Load builds and validates the configuration from v
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Telegram: TelegramConfig{
			Token:       v.GetString("telegram.token"),
			BotUsername: strings.TrimPrefix(v.GetString("telegram.bot_username"), "@"),
			WebhookURL:  v.GetString("telegram.webhook_url"),
			SecretToken: v.GetString("telegram.secret_token"),
		},
		Database: DatabaseConfig{
			DSN: v.GetString("database.dsn"),
		},
		Admin: AdminConfig{
			Secret:   v.GetString("admin.secret"),
			TokenTTL: v.GetDuration("admin.token_ttl"),
		},
		Search: SearchConfig{
			Limit: v.GetInt("search.limit"),
		},
		Server: ServerConfig{
			Addr:            v.GetString("server.addr"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	var errs []error

	if c.Admin.Secret == "" {
		errs = append(errs, errors.New("admin.secret is required (STICKERDOKO_ADMIN_SECRET or STICKERS_SECRET)"))
	}
	if c.Admin.TokenTTL <= 0 {
		errs = append(errs, errors.New("admin.token_ttl must be positive"))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if c.Search.Limit < 1 || c.Search.Limit > search.DefaultLimit {
		errs = append(errs, fmt.Errorf("search.limit must be between 1 and %d", search.DefaultLimit))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}
	if c.Telegram.WebhookURL != "" && c.Telegram.Token == "" {
		errs = append(errs, errors.New("telegram.token is required to register telegram.webhook_url"))
	}
	if !logger.ValidFormat(c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be %q or %q", logger.FormatText, logger.FormatJSON))
	}

	return errors.Join(errs...)
}
