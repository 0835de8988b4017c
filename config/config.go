// Package config loads the service configuration from file and
// environment.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all configuration for the argus service.
type Config struct {
	Pipeline struct {
		HistoryCapacity int `mapstructure:"history_capacity" validate:"gt=0"`
		ChannelBuffer   int `mapstructure:"channel_buffer" validate:"gt=0"`
	} `mapstructure:"pipeline"`

	Listener struct {
		Host      string `mapstructure:"host" validate:"required"`
		Port      int    `mapstructure:"port" validate:"gt=0,lte=65535"`
		RateLimit int    `mapstructure:"rate_limit" validate:"gt=0"`
	} `mapstructure:"listener"`

	Health struct {
		Host string `mapstructure:"host" validate:"required"`
		Port int    `mapstructure:"port" validate:"gt=0,lte=65535"`
	} `mapstructure:"health"`

	Storage struct {
		SQLitePath string `mapstructure:"sqlite_path" validate:"required"`
	} `mapstructure:"storage"`

	Signatures struct {
		CustomFile string `mapstructure:"custom_file"`
	} `mapstructure:"signatures"`

	ML struct {
		Enabled   bool          `mapstructure:"enabled"`
		CacheSize int           `mapstructure:"cache_size" validate:"gt=0"`
		CacheTTL  time.Duration `mapstructure:"cache_ttl"`
		Redis     struct {
			Enabled  bool   `mapstructure:"enabled"`
			Addr     string `mapstructure:"addr"`
			Password string `mapstructure:"password"`
			DB       int    `mapstructure:"db"`
		} `mapstructure:"redis"`
	} `mapstructure:"ml"`

	Trigger struct {
		RuleTables []string `mapstructure:"rule_tables" validate:"min=1,dive,required"`
	} `mapstructure:"trigger"`

	Notify struct {
		Webhook struct {
			Enabled     bool              `mapstructure:"enabled"`
			URL         string            `mapstructure:"url"`
			Method      string            `mapstructure:"method"`
			Headers     map[string]string `mapstructure:"headers"`
			MinSeverity string            `mapstructure:"min_severity"`
		} `mapstructure:"webhook"`
	} `mapstructure:"notify"`
}

func setDefaults() {
	viper.SetDefault("pipeline.history_capacity", 10000)
	viper.SetDefault("pipeline.channel_buffer", 1000)

	viper.SetDefault("listener.host", "0.0.0.0")
	viper.SetDefault("listener.port", 8080)
	viper.SetDefault("listener.rate_limit", 1000)

	viper.SetDefault("health.host", "0.0.0.0")
	viper.SetDefault("health.port", 9090)

	viper.SetDefault("storage.sqlite_path", "./data/argus.db")

	viper.SetDefault("signatures.custom_file", "")

	viper.SetDefault("ml.enabled", true)
	viper.SetDefault("ml.cache_size", 4096)
	viper.SetDefault("ml.cache_ttl", time.Hour)
	viper.SetDefault("ml.redis.enabled", false)
	viper.SetDefault("ml.redis.addr", "localhost:6379")
	viper.SetDefault("ml.redis.password", "")
	viper.SetDefault("ml.redis.db", 0)

	viper.SetDefault("trigger.rule_tables", []string{"trigger_rules"})

	viper.SetDefault("notify.webhook.enabled", false)
	viper.SetDefault("notify.webhook.url", "")
	viper.SetDefault("notify.webhook.method", "POST")
	viper.SetDefault("notify.webhook.min_severity", "")
}

func loadFromEnv() {
	viper.SetEnvPrefix("ARGUS")
	viper.AutomaticEnv()

	_ = viper.BindEnv("storage.sqlite_path", "ARGUS_SQLITE_PATH")
	_ = viper.BindEnv("listener.port", "ARGUS_LISTENER_PORT")
	_ = viper.BindEnv("health.port", "ARGUS_HEALTH_PORT")
	_ = viper.BindEnv("ml.redis.addr", "ARGUS_REDIS_ADDR")
}

// LoadConfig loads configuration from config.yaml and environment
// variables, falling back to defaults.
func LoadConfig(path string) (*Config, error) {
	viper.Reset()
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	setDefaults()
	loadFromEnv()

	if err := viper.ReadInConfig(); err != nil {
		if path != "" {
			return nil, fmt.Errorf("unable to read config file %s: %w", path, err)
		}
		// No config file found; defaults and env vars apply.
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validator.New().Struct(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if config.Notify.Webhook.Enabled && config.Notify.Webhook.URL == "" {
		return nil, fmt.Errorf("notify.webhook.url is required when the webhook is enabled")
	}

	return &config, nil
}
