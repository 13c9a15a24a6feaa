package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the Osanyin backend.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Dataset  DatasetConfig  `mapstructure:"dataset"`
	Advisory AdvisoryConfig `mapstructure:"advisory"`
	Features FeatureConfig  `mapstructure:"features"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
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

// DatasetConfig controls the remote herb dataset pipeline.
type DatasetConfig struct {
	SourceURLs     []string      `mapstructure:"source_urls"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// AdvisoryConfig configures the drug interaction analyzer.
type AdvisoryConfig struct {
	Provider      string        `mapstructure:"provider"`
	APIKey        string        `mapstructure:"api_key"`
	Model         string        `mapstructure:"model"`
	BaseURL       string        `mapstructure:"base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RetentionDays int           `mapstructure:"retention_days"`
}

// FeatureConfig toggles optional platform features.
type FeatureConfig struct {
	Events    EventsConfig    `mapstructure:"events"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// EventsConfig toggles the websocket event feed.
type EventsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// RateLimitConfig controls the per-client request limiter.
type RateLimitConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("OSANYIN")
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

	if len(config.Dataset.SourceURLs) == 0 {
		return nil, errors.New("config: dataset.source_urls must not be empty")
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/osanyin.sqlite")

	v.SetDefault("dataset.source_urls", []string{
		"https://raw.githubusercontent.com/osanyin/herbal-data/main/herbs.json",
		"https://raw.githubusercontent.com/osanyin/herbal-data/master/herbs.json",
	})
	v.SetDefault("dataset.cache_ttl", "1h")
	v.SetDefault("dataset.request_timeout", "15s")
	v.SetDefault("dataset.user_agent", "Osanyin-Herbal-Remedy/1.0")

	v.SetDefault("advisory.provider", "fallback")
	v.SetDefault("advisory.model", "gpt-3.5-turbo")
	v.SetDefault("advisory.base_url", "https://api.openai.com/v1")
	v.SetDefault("advisory.timeout", "30s")
	v.SetDefault("advisory.retention_days", 90)

	v.SetDefault("features.events.enabled", true)
	v.SetDefault("features.rate_limit.enabled", true)
	v.SetDefault("features.rate_limit.max_requests", 100)
	v.SetDefault("features.rate_limit.window", "1m")
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
