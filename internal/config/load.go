package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config file. Environment variables (prefix JOT_, nested keys joined
// with underscores, e.g. JOT_DATABASE_URL) take precedence over values
// from the config file.
// Returns a populated Config struct or an error if loading or validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("JOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; the environment can carry
		// everything. Any other read error is real.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// bindEnvKeys registers every config key with viper explicitly.
// AutomaticEnv only resolves keys viper already knows about, and keys
// without defaults (secrets, connection strings) would otherwise be
// invisible to Unmarshal when no config file is present.
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"server.port",
		"server.log_level",
		"database.url",
		"auth.jwt_secret",
		"storage.bucket",
		"storage.upload_url_ttl_seconds",
		"llm.gemini_api_key",
		"llm.model_name",
		"llm.max_retries",
		"llm.retry_delay_seconds",
		"worker.poll_interval_seconds",
		"worker.worker_count",
		"worker.job_timeout_seconds",
		"worker.stale_claim_age_seconds",
		"worker.stale_check_interval_seconds",
	} {
		v.MustBindEnv(key)
	}
}

// setDefaults registers defaults for settings that have sensible values
// without operator input. Secrets and connection strings have none.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("storage.upload_url_ttl_seconds", 900)

	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay_seconds", 2)

	v.SetDefault("worker.poll_interval_seconds", 5)
	v.SetDefault("worker.worker_count", 2)
	v.SetDefault("worker.job_timeout_seconds", 120)
	v.SetDefault("worker.stale_claim_age_seconds", 600)
	v.SetDefault("worker.stale_check_interval_seconds", 60)
}
