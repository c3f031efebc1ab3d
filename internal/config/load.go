package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by Load.
const EnvPrefix = "MICROLEARN"

// envKeys lists the keys that may be set only through the environment and
// therefore have to be bound explicitly.
var envKeys = []string{
	"database.url",
	"redis.addr",
	"redis.password",
	"auth.jwt_secret",
	"certification.base_url",
	"certification.api_key",
	"certification.sweep_schedule",
}

// setDefaults registers the default value of every optional setting.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.migrate_on_start", false)

	v.SetDefault("store.driver", StoreDriverPostgres)

	v.SetDefault("auth.token_lifetime", "1h")

	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "microlearn:")

	v.SetDefault("learning.required_video_ids", []string{})
	v.SetDefault("learning.first_free_video_id", "")
	v.SetDefault("learning.store_timeout", "5s")

	v.SetDefault("certification.timeout", "10s")
	v.SetDefault("certification.retry_count", 2)
	v.SetDefault("certification.async", false)
	v.SetDefault("certification.sweep_batch_size", 50)

	v.SetDefault("task.worker_count", 2)
	v.SetDefault("task.queue_size", 100)
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Optional config file in the working directory
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
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks struct-level constraints and the cross-section rules
// that depend on the selected store driver.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if c.Store.Driver != StoreDriverMemory && c.Database.URL == "" {
		return fmt.Errorf("config validation failed: database.url is required for store driver %q", c.Store.Driver)
	}
	if c.Store.Driver == StoreDriverRedis && c.Redis.Addr == "" {
		return fmt.Errorf("config validation failed: redis.addr is required for store driver %q", c.Store.Driver)
	}

	return nil
}
