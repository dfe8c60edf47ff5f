package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth" validate:"required"`
	LLM       LLMConfig       `mapstructure:"llm" validate:"required"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Worker    WorkerConfig    `mapstructure:"worker" validate:"required"`
	Submitter SubmitterConfig `mapstructure:"submitter" validate:"required"`
	Cache     CacheConfig     `mapstructure:"cache"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig selects and configures the task store.
type DatabaseConfig struct {
	// Driver is "postgres" or "memory". The memory driver is for local runs only.
	Driver string `mapstructure:"driver" validate:"required,oneof=postgres memory"`
	URL    string `mapstructure:"url" validate:"required_if=Driver postgres,omitempty,url"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
	// TokenLifetime is how long issued tokens stay valid.
	TokenLifetime time.Duration `mapstructure:"token_lifetime" validate:"gt=0"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	// Provider is "gemini" or "sample". The sample provider returns canned
	// artifacts and needs no credentials.
	Provider           string        `mapstructure:"provider" validate:"required,oneof=gemini sample"`
	GeminiAPIKey       string        `mapstructure:"gemini_api_key" validate:"required_if=Provider gemini"`
	ModelName          string        `mapstructure:"model_name" validate:"required"`
	MaxRetries         int           `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RetryBaseDelay     time.Duration `mapstructure:"retry_base_delay" validate:"gte=0"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute" validate:"gte=0"`
}

// RedisConfig points at the Redis instance behind the work queue and the
// cross-process change feed. An empty Addr runs both in-process.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"omitempty,hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// WorkerConfig tunes task execution.
type WorkerConfig struct {
	Concurrency          int           `mapstructure:"concurrency" validate:"gt=0"`
	QueueSize            int           `mapstructure:"queue_size" validate:"gt=0"`
	GenerationTimeout    time.Duration `mapstructure:"generation_timeout" validate:"gt=0"`
	LeaseDuration        time.Duration `mapstructure:"lease_duration" validate:"gtfield=GenerationTimeout"`
	ReconcileInterval    time.Duration `mapstructure:"reconcile_interval" validate:"gt=0"`
	StalePendingAfter    time.Duration `mapstructure:"stale_pending_after" validate:"gt=0"`
	TerminalWriteRetries int           `mapstructure:"terminal_write_retries" validate:"gte=0"`
	MaxDeliveries        int           `mapstructure:"max_deliveries" validate:"gte=0"`
}

// SubmitterConfig tunes the client-facing submission path.
type SubmitterConfig struct {
	FallbackDelay time.Duration `mapstructure:"fallback_delay" validate:"gt=0"`
	RatePerMinute int           `mapstructure:"rate_per_minute" validate:"gte=0"`
	Burst         int           `mapstructure:"burst" validate:"gte=0"`
}

// CacheConfig sizes the document read-through cache. A zero size disables it.
type CacheConfig struct {
	DocumentCacheSize int           `mapstructure:"document_cache_size" validate:"gte=0"`
	DocumentCacheTTL  time.Duration `mapstructure:"document_cache_ttl" validate:"gte=0"`
}
