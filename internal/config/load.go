package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g.
// STUDYTOOLS_DATABASE_URL for database.url.
const EnvPrefix = "STUDYTOOLS"

var defaults = map[string]any{
	"server.port":                   8080,
	"server.log_level":              "info",
	"database.driver":               "postgres",
	"database.url":                  "",
	"auth.jwt_secret":               "",
	"auth.token_lifetime":           "1h",
	"llm.provider":                  "gemini",
	"llm.gemini_api_key":            "",
	"llm.model_name":                "gemini-2.0-flash",
	"llm.max_retries":               3,
	"llm.retry_base_delay":          "2s",
	"llm.rate_limit_per_minute":     60,
	"redis.addr":                    "",
	"redis.password":                "",
	"redis.db":                      0,
	"worker.concurrency":            4,
	"worker.queue_size":             100,
	"worker.generation_timeout":     "90s",
	"worker.lease_duration":         "5m",
	"worker.reconcile_interval":     "1m",
	"worker.stale_pending_after":    "2m",
	"worker.terminal_write_retries": 5,
	"worker.max_deliveries":         5,
	"submitter.fallback_delay":      "30s",
	"submitter.rate_per_minute":     30,
	"submitter.burst":               5,
	"cache.document_cache_size":     256,
	"cache.document_cache_ttl":      "10m",
}

// Load configuration from environment variables and optionally a config.yaml
// in the working directory. Environment variables take precedence over values
// from the config file. Returns a populated Config or an error if loading or
// validation fails.
func Load() (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

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

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
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
