package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	Cache    CacheConfig    `mapstructure:"cache" validate:"required"`
	Task     TaskConfig     `mapstructure:"task" validate:"required"`
	SRS      SRSConfig      `mapstructure:"srs" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port      int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel  string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"required,oneof=json text"`
}

// DatabaseConfig contains the PostgreSQL connection settings.
type DatabaseConfig struct {
	URL                    string `mapstructure:"url" validate:"required,url"`
	MaxOpenConns           int    `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes" validate:"gte=1"`
}

// ConnMaxLifetime returns the pool connection lifetime as a duration.
func (d DatabaseConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(d.ConnMaxLifetimeMinutes) * time.Minute
}

// AuthConfig contains the bearer token settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gte=1,lte=44640"`
}

// CacheConfig contains the local blob cache and session lifetime settings.
type CacheConfig struct {
	// Path is the SQLite database file; ":memory:" keeps the cache in process.
	Path                   string `mapstructure:"path" validate:"required"`
	SessionIdleMinutes     int    `mapstructure:"session_idle_minutes" validate:"gte=1"`
	RetentionHours         int    `mapstructure:"retention_hours" validate:"gte=1"`
	JanitorIntervalMinutes int    `mapstructure:"janitor_interval_minutes" validate:"gte=1"`
}

// SessionIdle returns how long a session may stay unused before eviction.
func (c CacheConfig) SessionIdle() time.Duration {
	return time.Duration(c.SessionIdleMinutes) * time.Minute
}

// Retention returns how long an untouched local blob is kept.
func (c CacheConfig) Retention() time.Duration {
	return time.Duration(c.RetentionHours) * time.Hour
}

// JanitorInterval returns the period of the eviction job.
func (c CacheConfig) JanitorInterval() time.Duration {
	return time.Duration(c.JanitorIntervalMinutes) * time.Minute
}

// TaskConfig sizes the background worker pool used for remote writes.
type TaskConfig struct {
	WorkerCount int `mapstructure:"worker_count" validate:"gte=1"`
	QueueSize   int `mapstructure:"queue_size" validate:"gte=1"`
}

// SRSConfig tunes the spaced-repetition scheduler. Ease values are hundredths.
type SRSConfig struct {
	MinEaseFactor      int `mapstructure:"min_ease_factor" validate:"gte=100"`
	InitialEaseFactor  int `mapstructure:"initial_ease_factor" validate:"gtefield=MinEaseFactor"`
	FirstIntervalDays  int `mapstructure:"first_interval_days" validate:"gte=1"`
	SecondIntervalDays int `mapstructure:"second_interval_days" validate:"gtefield=FirstIntervalDays"`
	// LapseIntervalDays is the interval after a failed review.
	LapseIntervalDays int `mapstructure:"lapse_interval_days" validate:"gte=1"`
	MaxIntervalDays   int `mapstructure:"max_interval_days" validate:"gte=0"`
}
