// Package config handles configuration loading and validation for the
// miner.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for one miner process.
type Config struct {
	Collaborator CollaboratorConfig `mapstructure:"collaborator"`
	Worker       WorkerConfig       `mapstructure:"worker"`
	Mining       MiningConfig       `mapstructure:"mining"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Notify       NotifyConfig       `mapstructure:"notify"`
	API          APIConfig          `mapstructure:"api"`
	Telemetry    TelemetryConfig    `mapstructure:"telemetry"`
	Profiling    ProfilingConfig    `mapstructure:"profiling"`
	Log          LogConfig          `mapstructure:"log"`
}

// CollaboratorConfig points at the upstream STRATUM collaborator this
// miner submits shares to.
type CollaboratorConfig struct {
	Address   string        `mapstructure:"address"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// WorkerConfig carries the mining.authorize credentials.
type WorkerConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// MiningConfig controls the solver pool.
type MiningConfig struct {
	Threads      int `mapstructure:"threads"`
	MaxSolutions int `mapstructure:"max_solutions"`
}

// RedisConfig defines Redis connection settings for the rolling
// share/discard history behind the status API.
type RedisConfig struct {
	URL      string `mapstructure:"url"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// NotifyConfig controls the block-found webhook.
type NotifyConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
}

// APIConfig defines the local status API server.
type APIConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Bind       string        `mapstructure:"bind"`
	StatsCache time.Duration `mapstructure:"stats_cache"`
}

// TelemetryConfig controls the optional New Relic APM wrapper.
type TelemetryConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	AppName    string `mapstructure:"app_name"`
	LicenseKey string `mapstructure:"license_key"`
}

// ProfilingConfig controls the pprof HTTP endpoint.
type ProfilingConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Bind    string `mapstructure:"bind"`
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// Load reads configuration from file and environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/eqminer")
	}

	v.SetEnvPrefix("EQMINER")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("collaborator.user_agent", "eqminer/1.0")
	v.SetDefault("collaborator.timeout", "10s")

	v.SetDefault("mining.threads", 0) // 0 means GOMAXPROCS-1
	v.SetDefault("mining.max_solutions", 16)

	v.SetDefault("redis.url", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("notify.enabled", false)

	v.SetDefault("api.enabled", true)
	v.SetDefault("api.bind", "127.0.0.1:8090")
	v.SetDefault("api.stats_cache", "10s")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.app_name", "eqminer")

	v.SetDefault("profiling.enabled", false)
	v.SetDefault("profiling.bind", "127.0.0.1:6060")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Validate checks configuration for errors.
func (c *Config) Validate() error {
	if c.Collaborator.Address == "" {
		return fmt.Errorf("collaborator.address is required")
	}

	if c.Worker.Username == "" {
		return fmt.Errorf("worker.username is required")
	}

	if c.Mining.Threads < 0 {
		return fmt.Errorf("mining.threads must be >= 0")
	}

	if c.Mining.MaxSolutions <= 0 {
		return fmt.Errorf("mining.max_solutions must be > 0")
	}

	if c.Notify.Enabled && c.Notify.WebhookURL == "" {
		return fmt.Errorf("notify.webhook_url is required when notify is enabled")
	}

	if c.Telemetry.Enabled && c.Telemetry.LicenseKey == "" {
		return fmt.Errorf("telemetry.license_key is required when telemetry is enabled")
	}

	return nil
}
