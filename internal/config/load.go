package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name, e.g.
// QBANK_SERVER_PORT for server.port.
const EnvPrefix = "QBANK"

// keys without defaults still need to be bound so Unmarshal sees them
var requiredKeys = []string{
	"database.url",
	"auth.jwt_secret",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")

	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 25)
	v.SetDefault("database.conn_max_lifetime_minutes", 5)

	v.SetDefault("auth.token_lifetime_minutes", 60)

	v.SetDefault("cache.path", "qbank-cache.db")
	v.SetDefault("cache.session_idle_minutes", 60)
	v.SetDefault("cache.retention_hours", 24*30)
	v.SetDefault("cache.janitor_interval_minutes", 10)

	v.SetDefault("task.worker_count", 4)
	v.SetDefault("task.queue_size", 256)

	v.SetDefault("srs.min_ease_factor", 130)
	v.SetDefault("srs.initial_ease_factor", 250)
	v.SetDefault("srs.first_interval_days", 1)
	v.SetDefault("srs.second_interval_days", 6)
	v.SetDefault("srs.lapse_interval_days", 1)
	v.SetDefault("srs.max_interval_days", 0)
}

// Load configuration from environment variables and optionally config files.
// A .env file in the working directory is loaded first without overriding
// variables that are already set. Environment variables take precedence over
// values from config.yaml. Returns a populated Config struct or an error if
// loading or validation fails.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range requiredKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
