package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"        validate:"required"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Store         StoreConfig         `mapstructure:"store"         validate:"required"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Auth          AuthConfig          `mapstructure:"auth"          validate:"required"`
	Learning      LearningConfig      `mapstructure:"learning"      validate:"required"`
	Certification CertificationConfig `mapstructure:"certification"`
	Task          TaskConfig          `mapstructure:"task"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"             validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level"        validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
// The URL is required unless the store driver is "memory".
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"               validate:"omitempty,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"    validate:"gte=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
	// MigrateOnStart applies pending migrations before serving requests.
	MigrateOnStart bool `mapstructure:"migrate_on_start"`
}

// Store drivers for progress records.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverRedis    = "redis"
	StoreDriverMemory   = "memory"
)

// StoreConfig selects the progress store backend.
type StoreConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=postgres redis memory"`
	// Memory seeds the user directory of the "memory" driver. Approvals and
	// profiles have no other source there, so a user missing from Profiles
	// always gets a failed certification.
	Memory MemoryDirectoryConfig `mapstructure:"memory"`
}

// MemoryDirectoryConfig lists the approvals and profiles loaded into the
// in-memory directory at startup.
type MemoryDirectoryConfig struct {
	ApprovedUserIDs []int64         `mapstructure:"approved_user_ids" validate:"dive,gt=0"`
	Profiles        []MemoryProfile `mapstructure:"profiles"          validate:"dive"`
}

// MemoryProfile is one seeded user profile.
type MemoryProfile struct {
	UserID          int64  `mapstructure:"user_id"           validate:"gt=0"`
	DisplayName     string `mapstructure:"display_name"      validate:"required"`
	EmailOrUsername string `mapstructure:"email_or_username" validate:"required"`
}

// RedisConfig configures the Redis progress store. Addr is required when the
// store driver is "redis".
type RedisConfig struct {
	Addr      string `mapstructure:"addr"       validate:"omitempty,hostname_port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"         validate:"gte=0,lte=15"`
	KeyPrefix string `mapstructure:"key_prefix" validate:"required"`
}

// AuthConfig contains the settings used to validate bearer tokens.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"     validate:"required,min=32"`
	// TokenLifetime applies to tokens minted by cmd/token for local use.
	TokenLifetime time.Duration `mapstructure:"token_lifetime" validate:"gt=0"`
}

// LearningConfig describes the course the engine tracks.
type LearningConfig struct {
	// RequiredVideoIDs lists every video that must be completed before a
	// completion record can be created.
	RequiredVideoIDs []string `mapstructure:"required_video_ids"  validate:"required,min=1,dive,required"`
	// FirstFreeVideoID is the only video users with limited access may progress.
	FirstFreeVideoID string `mapstructure:"first_free_video_id" validate:"required"`
	// StoreTimeout bounds every store round trip made for a request.
	StoreTimeout time.Duration `mapstructure:"store_timeout" validate:"gt=0"`
}

// CertificationConfig configures the external certification authority.
// Leaving BaseURL or APIKey empty disables certification submission.
type CertificationConfig struct {
	BaseURL    string        `mapstructure:"base_url"    validate:"omitempty,url"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"     validate:"gt=0"`
	RetryCount int           `mapstructure:"retry_count" validate:"gte=0,lte=5"`
	// Async hands submissions to the background worker pool instead of
	// waiting for the authority inside the completion request.
	Async bool `mapstructure:"async"`
	// SweepSchedule is a cron expression for re-submitting completions whose
	// certificate was never generated. Empty disables the sweep.
	SweepSchedule string `mapstructure:"sweep_schedule"`
	// SweepBatchSize caps how many completions one sweep run re-submits.
	SweepBatchSize int `mapstructure:"sweep_batch_size" validate:"gt=0"`
}

// Configured reports whether the certification authority is set up.
func (c CertificationConfig) Configured() bool {
	return c.BaseURL != "" && c.APIKey != ""
}

// TaskConfig configures the background worker pool.
type TaskConfig struct {
	WorkerCount int `mapstructure:"worker_count" validate:"gt=0"`
	QueueSize   int `mapstructure:"queue_size"   validate:"gt=0"`
}
