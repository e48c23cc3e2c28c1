package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. ISSUERELAY_GITHUB_TOKEN.
const EnvPrefix = "ISSUERELAY"

// Config represents the runtime configuration for the relay.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Cache      CacheConfig      `mapstructure:"cache"`
	GitHub     GitHubConfig     `mapstructure:"github"`
	Discord    DiscordConfig    `mapstructure:"discord"`
	Bot        BotConfig        `mapstructure:"bot"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int    `mapstructure:"port"`
	LogLevel       string `mapstructure:"log_level"`
	LogDevelopment bool   `mapstructure:"log_development"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// CacheConfig tunes the two-tier issue cache.
type CacheConfig struct {
	DefaultTTL    time.Duration `mapstructure:"default_ttl"`
	CheckPeriod   time.Duration `mapstructure:"check_period"`
	PurgeSchedule string        `mapstructure:"purge_schedule"`
}

// GitHubConfig configures the GitHub REST client.
type GitHubConfig struct {
	Token     string        `mapstructure:"token"`
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// DiscordConfig configures the Discord integration.
type DiscordConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	BotToken      string        `mapstructure:"bot_token"`
	ApplicationID string        `mapstructure:"application_id"`
	PublicKey     string        `mapstructure:"public_key"`
	APIBaseURL    string        `mapstructure:"api_base_url"`
	Intents       int           `mapstructure:"intents"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// BotConfig controls how messages are answered.
type BotConfig struct {
	MaxReferences     int    `mapstructure:"max_references"`
	DefaultRepository string `mapstructure:"default_repository"`
	BodyPreviewLength int    `mapstructure:"body_preview_length"`
}

// AuthConfig captures admin API authentication settings.
type AuthConfig struct {
	JWT               JWTSettings `mapstructure:"jwt"`
	AdminPasswordHash string      `mapstructure:"admin_password_hash"`
}

// JWTSettings configures admin tokens.
type JWTSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"access_token_ttl"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	return load(v)
}

// LoadConfigFile reads one explicit file instead of searching.
func LoadConfigFile(file string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(file)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_development", false)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/issuerelay.sqlite")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.postgres.enabled", false)
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.database", "issuerelay")
	v.SetDefault("database.postgres.username", "")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.mysql.enabled", false)
	v.SetDefault("database.mysql.host", "localhost")
	v.SetDefault("database.mysql.port", 3306)
	v.SetDefault("database.mysql.database", "issuerelay")
	v.SetDefault("database.mysql.username", "")
	v.SetDefault("database.mysql.password", "")

	v.SetDefault("cache.default_ttl", "300s")
	v.SetDefault("cache.check_period", "60s")
	v.SetDefault("cache.purge_schedule", "@every 10m")

	v.SetDefault("github.token", "")
	v.SetDefault("github.base_url", "")
	v.SetDefault("github.timeout", "10s")
	v.SetDefault("github.user_agent", "issuerelay")

	v.SetDefault("discord.enabled", false)
	v.SetDefault("discord.bot_token", "")
	v.SetDefault("discord.application_id", "")
	v.SetDefault("discord.public_key", "")
	v.SetDefault("discord.api_base_url", "")
	v.SetDefault("discord.intents", 0)
	v.SetDefault("discord.timeout", "10s")

	v.SetDefault("bot.max_references", 3)
	v.SetDefault("bot.default_repository", "")
	v.SetDefault("bot.body_preview_length", 300)

	v.SetDefault("auth.jwt.secret", "")
	v.SetDefault("auth.jwt.issuer", "issuerelay")
	v.SetDefault("auth.jwt.access_token_ttl", "1h")
	v.SetDefault("auth.admin_password_hash", "")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
