package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Storage  StorageConfig  `mapstructure:"storage"  validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"      validate:"required"`
	Worker   WorkerConfig   `mapstructure:"worker"   validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains authentication settings. The service only validates
// bearer tokens minted elsewhere; it never issues them.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}

// StorageConfig contains object-store settings for audio blobs.
type StorageConfig struct {
	Bucket string `mapstructure:"bucket" validate:"required"`

	// UploadURLTTLSeconds bounds how long a signed upload URL stays valid.
	UploadURLTTLSeconds int `mapstructure:"upload_url_ttl_seconds" validate:"required,gt=0"`
}

// LLMConfig contains settings for the Gemini-backed transcription and
// task-extraction capabilities.
type LLMConfig struct {
	GeminiAPIKey      string `mapstructure:"gemini_api_key"      validate:"required"`
	ModelName         string `mapstructure:"model_name"          validate:"required"`
	MaxRetries        int    `mapstructure:"max_retries"         validate:"gte=0"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=0"`
}

// WorkerConfig contains settings for the background worker loop.
type WorkerConfig struct {
	// PollIntervalSeconds is how often the loop checks for queued jobs.
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds" validate:"required,gt=0"`

	// WorkerCount determines how many concurrent workers claim jobs.
	WorkerCount int `mapstructure:"worker_count" validate:"required,gt=0"`

	// JobTimeoutSeconds bounds a single job's processing, covering the
	// blob download and both capability calls. Expiry fails the job with
	// the timeout error code.
	JobTimeoutSeconds int `mapstructure:"job_timeout_seconds" validate:"required,gt=0"`

	// StaleClaimAgeSeconds is how long a job may sit in transcribing
	// before its claim is considered abandoned and reset to queued.
	// Must comfortably exceed JobTimeoutSeconds.
	StaleClaimAgeSeconds int `mapstructure:"stale_claim_age_seconds" validate:"required,gt=0"`

	// StaleCheckIntervalSeconds is how often the stale-claim sweep runs.
	StaleCheckIntervalSeconds int `mapstructure:"stale_check_interval_seconds" validate:"required,gt=0"`
}
