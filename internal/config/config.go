package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Lockout      LockoutConfig
	Verification VerificationConfig
	Roblox       RobloxConfig
	Worker       WorkerConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations      bool
	MigrationsDir      string
	ConnMaxIdleSec     int32
	ConnMaxLifeSec     int32
	StatementTimeoutMS int
	ApplicationName    string
}

// RedisConfig holds Redis connection values. Redis only backs the avatar
// cache, so it can be switched off.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	PINLength             int
}

// LockoutConfig defines the failed-login policy.
type LockoutConfig struct {
	MaxAttempts          int
	WindowMinutes        int
	AttemptRetentionDays int
}

// VerificationConfig defines profile-code verification parameters.
type VerificationConfig struct {
	CodeLength    int
	ExpiryMinutes int
}

// RobloxConfig points the identity client at the Roblox public APIs.
type RobloxConfig struct {
	UsersBaseURL          string
	ThumbnailsBaseURL     string
	TimeoutSeconds        int
	AvatarCacheTTLMinutes int
}

// WorkerConfig controls background maintenance.
type WorkerConfig struct {
	CleanupIntervalMinutes int
}

// NotificationConfig holds the broker used for domain event fan-out.
type NotificationConfig struct {
	AMQPURL string
	Queue   string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "staff-portal"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:                os.Getenv("POSTGRES_DSN"),
			MaxConns:           int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:           int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:      getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:      getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec:     int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec:     int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
			StatementTimeoutMS: getEnvAsInt("POSTGRES_STATEMENT_TIMEOUT_MS", 5000),
			ApplicationName:    getEnv("POSTGRES_APPLICATION_NAME", "staff-portal"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60*12),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			PINLength:             getEnvAsInt("AUTH_PIN_LENGTH", 4),
		},
		Lockout: LockoutConfig{
			MaxAttempts:          getEnvAsInt("LOCKOUT_MAX_ATTEMPTS", 5),
			WindowMinutes:        getEnvAsInt("LOCKOUT_WINDOW_MINUTES", 15),
			AttemptRetentionDays: getEnvAsInt("LOCKOUT_ATTEMPT_RETENTION_DAYS", 30),
		},
		Verification: VerificationConfig{
			CodeLength:    getEnvAsInt("VERIFICATION_CODE_LENGTH", 6),
			ExpiryMinutes: getEnvAsInt("VERIFICATION_EXPIRY_MINUTES", 10),
		},
		Roblox: RobloxConfig{
			UsersBaseURL:          getEnv("ROBLOX_USERS_BASE_URL", "https://users.roblox.com"),
			ThumbnailsBaseURL:     getEnv("ROBLOX_THUMBNAILS_BASE_URL", "https://thumbnails.roblox.com"),
			TimeoutSeconds:        getEnvAsInt("ROBLOX_TIMEOUT_SECONDS", 5),
			AvatarCacheTTLMinutes: getEnvAsInt("ROBLOX_AVATAR_CACHE_TTL_MINUTES", 60),
		},
		Worker: WorkerConfig{
			CleanupIntervalMinutes: getEnvAsInt("WORKER_CLEANUP_INTERVAL_MINUTES", 60),
		},
		Notification: NotificationConfig{
			AMQPURL: os.Getenv("AMQP_URL"),
			Queue:   getEnv("AMQP_QUEUE", "staff.events"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Window returns the trailing failure window.
func (l LockoutConfig) Window() time.Duration {
	return time.Duration(l.WindowMinutes) * time.Minute
}

// Expiry returns how long a verification code stays valid.
func (v VerificationConfig) Expiry() time.Duration {
	return time.Duration(v.ExpiryMinutes) * time.Minute
}

// Timeout returns the per-request deadline for Roblox calls.
func (r RobloxConfig) Timeout() time.Duration {
	if r.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// AvatarCacheTTL returns how long avatar URLs stay cached.
func (r RobloxConfig) AvatarCacheTTL() time.Duration {
	return time.Duration(r.AvatarCacheTTLMinutes) * time.Minute
}

// CleanupInterval returns the sweep period for the cleanup worker.
func (w WorkerConfig) CleanupInterval() time.Duration {
	if w.CleanupIntervalMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(w.CleanupIntervalMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
